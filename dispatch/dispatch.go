package dispatch

import (
	"github.com/intellect4all/xtrieved/cursor"
	"github.com/intellect4all/xtrieved/locking"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/ops"
	"github.com/intellect4all/xtrieved/record"
	"github.com/intellect4all/xtrieved/status"
	"github.com/intellect4all/xtrieved/wire"
)

// Execute routes one request to its operation handler and packages the
// result into a response, catching every typed error into a status code
// (spec.md §4.7).
func (e *Engine) Execute(s *ops.Session, req *wire.Request) *wire.Response {
	cur := cursor.ToCursor(req.PositionBlock)
	path := req.FilePath
	if path == "" {
		path = cur.FilePath
	}

	resp, err := e.dispatch(s, ops.Code(req.Operation), req, cur, path)
	if err != nil {
		if e.Log != nil {
			e.Log.Debugw("operation failed", "op", req.Operation, "path", path, "error", err)
		}
		return &wire.Response{Status: uint16(status.CodeOf(err)), PositionBlock: req.PositionBlock}
	}
	return resp
}

func (e *Engine) dispatch(s *ops.Session, code ops.Code, req *wire.Request, cur *cursor.Cursor, path string) (*wire.Response, error) {
	switch code {
	case ops.Open:
		return e.opOpen(s, path)
	case ops.Close:
		return e.opClose(s, path)
	case ops.Create:
		return e.opCreate(path, req.Data)
	case ops.Stat:
		return e.opStat(s, path)
	case ops.Insert:
		return e.opInsert(s, path, req.Data)
	case ops.Update:
		return e.opUpdate(s, path, cur, req.Data)
	case ops.Delete:
		return e.opDelete(s, path, cur)
	case ops.GetEqual:
		return e.opGetEqual(s, path, int(req.KeyNumber), req.Key)
	case ops.GetFirst:
		return e.opGetFirst(s, path, int(req.KeyNumber))
	case ops.GetLast:
		return e.opGetLast(s, path, int(req.KeyNumber))
	case ops.GetNext:
		return e.opGetNext(s, path, cur)
	case ops.GetPrevious:
		return e.opGetPrevious(s, path, cur)
	case ops.GetGreater:
		return e.opRange(s, path, int(req.KeyNumber), req.Key, rangeGreater)
	case ops.GetGreaterOrEqual:
		return e.opRange(s, path, int(req.KeyNumber), req.Key, rangeGE)
	case ops.GetLessThan:
		return e.opRange(s, path, int(req.KeyNumber), req.Key, rangeLess)
	case ops.GetLessOrEqual:
		return e.opRange(s, path, int(req.KeyNumber), req.Key, rangeLE)
	case ops.GetPosition:
		return e.opGetPosition(cur)
	case ops.GetDirect:
		return e.opGetDirect(s, path, req)
	case ops.StepFirst:
		return e.opStepFirst(s, path)
	case ops.StepLast:
		return e.opStepLast(s, path)
	case ops.StepNext, ops.StepNextExtended:
		return e.opStepNext(s, path, cur)
	case ops.StepPrevious, ops.StepPreviousExtended:
		return e.opStepPrevious(s, path, cur)
	case ops.Unlock:
		e.Locks.UnlockRecord(path, cur.RecordAddr.ToBytes(), locking.SessionID(s.ID))
		return &wire.Response{Status: uint16(status.Success)}, nil
	case ops.BeginTransaction:
		return e.opBeginTransaction(s, req.LockBias)
	case ops.EndTransaction:
		return e.opEndTransaction(s)
	case ops.AbortTransaction:
		return e.opAbortTransaction(s)
	case ops.Reset:
		return &wire.Response{Status: uint16(status.Success)}, nil
	case ops.Version:
		return &wire.Response{Status: uint16(status.Success), Data: []byte("xtrieved 1.0")}, nil
	case ops.CreateSupplementalIndex:
		return e.opCreateSupplementalIndex(s, path, req.Data)
	case ops.DropSupplementalIndex:
		return e.opDropSupplementalIndex(s, path, int(req.KeyNumber))
	case ops.SetOwner, ops.ClearOwner:
		return nil, status.New(status.InvalidOperation, "owner passwords are not implemented")
	default:
		return nil, status.New(status.InvalidOperation, "unrecognized or unsupported opcode")
	}
}

// file resolves path to its open handle, enrolling it in s's transaction
// (starting its pre-image log on first touch) if one is open.
func (e *Engine) file(s *ops.Session, path string) (*ops.File, error) {
	of, ok := e.lookupOpen(path)
	if !ok {
		var err error
		of, err = e.openFile(path)
		if err != nil {
			return nil, err
		}
	}
	if s.InTransaction() && !s.EnrolledFiles[path] {
		if err := of.BeginTransaction(openfiles.SessionID(s.ID), e.DataDir); err != nil {
			return nil, err
		}
		s.Enroll(path)
	}
	return &ops.File{Path: path, Of: of}, nil
}

func responseFor(result ops.Result, c *cursor.Cursor, leafPage, leafIndex uint32, keyNumber int32) *wire.Response {
	c.PositionWithLeaf(result.Addr, result.Key, result.Data, leafPage, leafIndex)
	c.KeyNumber = keyNumber
	block := cursor.FromCursor(c)
	return &wire.Response{Status: uint16(status.Success), PositionBlock: block, Data: result.Data, Key: result.Key}
}

func (e *Engine) opOpen(s *ops.Session, path string) (*wire.Response, error) {
	if _, err := e.openFile(path); err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path, State: cursor.StateUnpositioned}
	return &wire.Response{Status: uint16(status.Success), PositionBlock: cursor.FromCursor(c)}, nil
}

func (e *Engine) opClose(s *ops.Session, path string) (*wire.Response, error) {
	if err := e.closeFile(path); err != nil {
		return nil, err
	}
	e.Locks.UnlockFile(path, locking.SessionID(s.ID))
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opCreate(path string, data []byte) (*wire.Response, error) {
	spec, err := ops.ParseCreateFileSpec(data)
	if err != nil {
		return nil, err
	}
	if err := ops.CreateFile(e.Files, path, spec); err != nil {
		return nil, err
	}
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opStat(s *ops.Session, path string) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	st := ops.Stat(f)
	return &wire.Response{Status: uint16(status.Success), Data: st.ToBytes()}, nil
}

func (e *Engine) opInsert(s *ops.Session, path string, data []byte) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.Insert(f, s.ID, data)
	if err != nil {
		return nil, err
	}
	if s.InTransaction() {
		addrBytes := result.Addr.ToBytes()
		e.Locks.LockRecord(path, addrBytes, locking.SessionID(s.ID), locking.TypeMultiNoWait)
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, 0, 0, 0), nil
}

func (e *Engine) opUpdate(s *ops.Session, path string, cur *cursor.Cursor, data []byte) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	if e.Locks.IsRecordLocked(path, cur.RecordAddr.ToBytes(), locking.SessionID(s.ID)) {
		return nil, status.New(status.RecordInUse, "record locked by another session")
	}
	result, err := ops.Update(f, s.ID, cur.RecordAddr, data)
	if err != nil {
		return nil, err
	}
	cur.FilePath = path
	return responseFor(result, cur, cur.LeafPage, cur.LeafIndex, cur.KeyNumber), nil
}

func (e *Engine) opDelete(s *ops.Session, path string, cur *cursor.Cursor) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	if e.Locks.IsRecordLocked(path, cur.RecordAddr.ToBytes(), locking.SessionID(s.ID)) {
		return nil, status.New(status.RecordInUse, "record locked by another session")
	}
	if err := ops.Delete(f, s.ID, cur.RecordAddr); err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path, State: cursor.StateDeleted}
	return &wire.Response{Status: uint16(status.Success), PositionBlock: cursor.FromCursor(c)}, nil
}

func (e *Engine) opGetEqual(s *ops.Session, path string, keyNumber int, key []byte) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.GetEqual(f, s.ID, keyNumber, key)
	if err != nil {
		return nil, err
	}
	if e.Locks.IsRecordLocked(path, result.Addr.ToBytes(), locking.SessionID(s.ID)) {
		return nil, status.New(status.RecordInUse, "record locked by another session's transaction")
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, result.LeafPage, uint32(result.LeafIndex), int32(keyNumber)), nil
}

func (e *Engine) opGetFirst(s *ops.Session, path string, keyNumber int) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.GetFirst(f, s.ID, keyNumber)
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, result.LeafPage, uint32(result.LeafIndex), int32(keyNumber)), nil
}

func (e *Engine) opGetLast(s *ops.Session, path string, keyNumber int) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.GetLast(f, s.ID, keyNumber)
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, result.LeafPage, uint32(result.LeafIndex), int32(keyNumber)), nil
}

func (e *Engine) opGetNext(s *ops.Session, path string, cur *cursor.Cursor) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.GetNext(f, s.ID, int(cur.KeyNumber), cur.LeafPage, int(cur.LeafIndex))
	if err != nil {
		return nil, err
	}
	cur.FilePath = path
	return responseFor(result, cur, result.LeafPage, uint32(result.LeafIndex), cur.KeyNumber), nil
}

func (e *Engine) opGetPrevious(s *ops.Session, path string, cur *cursor.Cursor) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.GetPrevious(f, s.ID, int(cur.KeyNumber), cur.LeafPage, int(cur.LeafIndex))
	if err != nil {
		return nil, err
	}
	cur.FilePath = path
	return responseFor(result, cur, result.LeafPage, uint32(result.LeafIndex), cur.KeyNumber), nil
}

type rangeKind int

const (
	rangeGreater rangeKind = iota
	rangeGE
	rangeLess
	rangeLE
)

func (e *Engine) opRange(s *ops.Session, path string, keyNumber int, key []byte, kind rangeKind) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	var result ops.Result
	switch kind {
	case rangeGreater:
		result, err = ops.GetGreater(f, s.ID, keyNumber, key)
	case rangeGE:
		result, err = ops.GetGreaterOrEqual(f, s.ID, keyNumber, key)
	case rangeLess:
		result, err = ops.GetLessThan(f, s.ID, keyNumber, key)
	case rangeLE:
		result, err = ops.GetLessOrEqual(f, s.ID, keyNumber, key)
	}
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, result.LeafPage, uint32(result.LeafIndex), int32(keyNumber)), nil
}

func (e *Engine) opGetPosition(cur *cursor.Cursor) (*wire.Response, error) {
	pos := cur.RecordAddr.ToPosition()
	data := make([]byte, 4)
	putU32(data, pos)
	return &wire.Response{Status: uint16(status.Success), PositionBlock: cursor.FromCursor(cur), Data: data}, nil
}

func (e *Engine) opGetDirect(s *ops.Session, path string, req *wire.Request) (*wire.Response, error) {
	if len(req.Data) < 4 {
		return nil, status.New(status.DataBufferTooShort, "get direct requires a 4-byte physical position")
	}
	pos := getU32(req.Data)
	addr := record.AddressFromPosition(pos)
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	data, err := ops.ReadRecord(f, openfiles.SessionID(s.ID), addr)
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	result := ops.Result{Addr: addr, Data: data}
	return responseFor(result, c, 0, 0, 0), nil
}

func (e *Engine) opStepFirst(s *ops.Session, path string) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.StepFirst(f, s.ID)
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, 0, 0, -1), nil
}

func (e *Engine) opStepLast(s *ops.Session, path string) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.StepLast(f, s.ID)
	if err != nil {
		return nil, err
	}
	c := &cursor.Cursor{FilePath: path}
	return responseFor(result, c, 0, 0, -1), nil
}

func (e *Engine) opStepNext(s *ops.Session, path string, cur *cursor.Cursor) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.StepNext(f, s.ID, cur.RecordAddr)
	if err != nil {
		return nil, err
	}
	cur.FilePath = path
	return responseFor(result, cur, 0, 0, -1), nil
}

func (e *Engine) opStepPrevious(s *ops.Session, path string, cur *cursor.Cursor) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	result, err := ops.StepPrevious(f, s.ID, cur.RecordAddr)
	if err != nil {
		return nil, err
	}
	cur.FilePath = path
	return responseFor(result, cur, 0, 0, -1), nil
}

func (e *Engine) opBeginTransaction(s *ops.Session, lockBias uint16) (*wire.Response, error) {
	if s.InTransaction() {
		return nil, status.New(status.TransactionActive, "session already has an open transaction")
	}
	s.Mode = ops.ModeConcurrent
	if lockBias >= 200 {
		s.Mode = ops.ModeExclusive
	}
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opEndTransaction(s *ops.Session) (*wire.Response, error) {
	for path := range s.EnrolledFiles {
		of, ok := e.lookupOpen(path)
		if !ok {
			continue
		}
		if err := of.CommitTransaction(openfiles.SessionID(s.ID)); err != nil {
			return nil, err
		}
	}
	e.Locks.ReleaseSession(locking.SessionID(s.ID))
	s.Reset()
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opAbortTransaction(s *ops.Session) (*wire.Response, error) {
	for path := range s.EnrolledFiles {
		of, ok := e.lookupOpen(path)
		if !ok {
			continue
		}
		if err := of.AbortTransaction(openfiles.SessionID(s.ID)); err != nil {
			return nil, err
		}
	}
	e.Locks.ReleaseSession(locking.SessionID(s.ID))
	s.Reset()
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opCreateSupplementalIndex(s *ops.Session, path string, data []byte) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	spec, err := ops.ParseCreateFileSpec(append([]byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0}, data...))
	if err != nil || len(spec.Keys) == 0 {
		return nil, status.New(status.DataBufferTooShort, "supplemental index spec malformed")
	}
	if err := ops.CreateSupplementalIndex(f, spec.Keys[0]); err != nil {
		return nil, err
	}
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func (e *Engine) opDropSupplementalIndex(s *ops.Session, path string, keyNumber int) (*wire.Response, error) {
	f, err := e.file(s, path)
	if err != nil {
		return nil, err
	}
	if err := ops.DropSupplementalIndex(f, keyNumber); err != nil {
		return nil, err
	}
	return &wire.Response{Status: uint16(status.Success)}, nil
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
