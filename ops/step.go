package ops

import (
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/record"
	"github.com/intellect4all/xtrieved/status"
)

// Step navigation walks the data-page chain in physical slot order,
// independent of any key index (spec.md §4.5 "Step opcodes").

func resultAt(f *File, session openfiles.SessionID, pageNum uint32, slot uint16) (Result, error) {
	dp, err := dataPageAt(f, session, pageNum)
	if err != nil {
		return Result{}, err
	}
	data := dp.Get(slot)
	if data == nil {
		return Result{}, status.New(status.InvalidRecordAddress, "slot not in use")
	}
	return Result{Addr: record.Address{Page: pageNum, Slot: slot}, Data: append([]byte(nil), data...)}, nil
}

// StepFirst positions at the physically first record in the file.
func StepFirst(f *File, session openfiles.SessionID) (Result, error) {
	fc := f.FCR()
	pageNum := fc.FirstDataPage
	for pageNum != 0 {
		dp, err := dataPageAt(f, session, pageNum)
		if err != nil {
			return Result{}, err
		}
		if slot, ok := dp.FirstSlot(); ok {
			return resultAt(f, session, pageNum, slot)
		}
		pageNum = dp.Underlying().Next()
	}
	return Result{}, status.New(status.EndOfFile, "file is empty")
}

// StepLast positions at the physically last record in the file.
func StepLast(f *File, session openfiles.SessionID) (Result, error) {
	fc := f.FCR()
	pageNum := fc.LastDataPage
	for pageNum != 0 {
		dp, err := dataPageAt(f, session, pageNum)
		if err != nil {
			return Result{}, err
		}
		if slot, ok := dp.LastSlot(); ok {
			return resultAt(f, session, pageNum, slot)
		}
		pageNum = dp.Underlying().Prev()
	}
	return Result{}, status.New(status.EndOfFile, "file is empty")
}

// StepNext advances from addr to the next physically ordered record,
// crossing into the following data page when the current page is
// exhausted.
func StepNext(f *File, session openfiles.SessionID, addr record.Address) (Result, error) {
	pageNum := addr.Page
	dp, err := dataPageAt(f, session, pageNum)
	if err != nil {
		return Result{}, err
	}
	if slot, ok := dp.NextSlot(addr.Slot); ok {
		return resultAt(f, session, pageNum, slot)
	}
	pageNum = dp.Underlying().Next()
	for pageNum != 0 {
		next, err := dataPageAt(f, session, pageNum)
		if err != nil {
			return Result{}, err
		}
		if slot, ok := next.FirstSlot(); ok {
			return resultAt(f, session, pageNum, slot)
		}
		pageNum = next.Underlying().Next()
	}
	return Result{}, status.New(status.EndOfFile, "no more records")
}

// StepPrevious is StepNext's mirror, walking toward the file's start.
func StepPrevious(f *File, session openfiles.SessionID, addr record.Address) (Result, error) {
	pageNum := addr.Page
	dp, err := dataPageAt(f, session, pageNum)
	if err != nil {
		return Result{}, err
	}
	if slot, ok := dp.PrevSlot(addr.Slot); ok {
		return resultAt(f, session, pageNum, slot)
	}
	pageNum = dp.Underlying().Prev()
	for pageNum != 0 {
		prev, err := dataPageAt(f, session, pageNum)
		if err != nil {
			return Result{}, err
		}
		if slot, ok := prev.LastSlot(); ok {
			return resultAt(f, session, pageNum, slot)
		}
		pageNum = prev.Underlying().Prev()
	}
	return Result{}, status.New(status.EndOfFile, "no more records")
}
