package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/ops"
	"github.com/intellect4all/xtrieved/pagecache"
	"github.com/intellect4all/xtrieved/record"
)

// Fixed record layout for the demo file: a 4-byte integer customer id key
// followed by a 32-byte zero-padded name field.
const (
	recordLength = 36
	pageSize     = 1024
	demoSession  = openfiles.SessionID(1)
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("xtrieved Demo: Btrieve 5.1-compatible ISAM record manager")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
	fmt.Println("This demo drives the engine's operation handlers directly, in process,")
	fmt.Println("against a scratch .dat file, without a network round trip.")
	fmt.Println()

	demoFile()
}

func demoFile() {
	dir := "./data-xtrieved"
	os.MkdirAll(dir, 0o755)
	defer os.RemoveAll(dir)
	path := dir + "/customers.dat"

	cache, err := pagecache.New(64, nil)
	if err != nil {
		log.Fatal(err)
	}
	table := openfiles.NewTable(cache)

	fmt.Println("[Create]")
	spec := ops.CreateFileSpec{
		RecordLength: recordLength,
		PageSize:     pageSize,
		Keys: []keyspec.Spec{
			{Position: 0, Length: 4, Type: keyspec.TypeInteger},
			{Position: 4, Length: 32, Type: keyspec.TypeZString, Flags: keyspec.FlagDuplicates},
		},
	}
	if err := ops.CreateFile(table, path, spec); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  created %s (record_length=%d, page_size=%d, keys=%d)\n", path, recordLength, pageSize, len(spec.Keys))

	of, err := table.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	f := &ops.File{Path: path, Of: of}

	fmt.Println("\n[Insert]")
	customers := []struct {
		id   uint32
		name string
	}{
		{1001, "Alice"},
		{1002, "Bob"},
		{1003, "Charlie"},
	}
	for _, c := range customers {
		rec := encodeRecord(c.id, c.name)
		result, err := ops.Insert(f, demoSession, rec)
		if err != nil {
			log.Printf("  insert %d failed: %v", c.id, err)
			continue
		}
		fmt.Printf("  INSERT id=%d name=%s -> addr=%+v\n", c.id, c.name, result.Addr)
	}

	fmt.Println("\n[Get Equal]")
	for _, c := range customers {
		key := encodeID(c.id)
		result, err := ops.GetEqual(f, demoSession, 0, key)
		if err != nil {
			log.Printf("  get equal %d failed: %v", c.id, err)
			continue
		}
		id, name := decodeRecord(result.Data)
		fmt.Printf("  GET EQUAL id=%d -> id=%d name=%s\n", c.id, id, truncate(name, 20))
	}

	fmt.Println("\n[Get First / Get Next]")
	result, err := ops.GetFirst(f, demoSession, 0)
	if err != nil {
		log.Printf("  get first failed: %v", err)
	} else {
		count := 0
		for {
			id, name := decodeRecord(result.Data)
			fmt.Printf("  %d: id=%d name=%s\n", count, id, name)
			count++
			result, err = ops.GetNext(f, demoSession, 0, result.LeafPage, result.LeafIndex)
			if err != nil {
				break
			}
		}
	}

	fmt.Println("\n[Update]")
	updated := encodeRecord(1002, "Bob Updated")
	if _, err := ops.Update(f, demoSession, record1002Addr(f), updated); err != nil {
		log.Printf("  update failed: %v", err)
	} else {
		fmt.Println("  UPDATE id=1002 -> name=Bob Updated")
	}

	fmt.Println("\n[Delete]")
	if err := ops.Delete(f, demoSession, record1002Addr(f)); err != nil {
		log.Printf("  delete failed: %v", err)
	} else {
		fmt.Println("  DELETE id=1002")
	}

	fmt.Println("\n[Stat]")
	st := ops.Stat(f)
	fmt.Printf("  record_length=%d page_size=%d num_keys=%d num_records=%d\n",
		st.RecordLength, st.PageSize, st.NumKeys, st.NumRecords)

	table.Close(path)
}

// record1002Addr re-finds customer 1002's address via its key, since the
// demo doesn't thread addresses between sections the way a real client's
// cursor would.
func record1002Addr(f *ops.File) record.Address {
	result, err := ops.GetEqual(f, demoSession, 0, encodeID(1002))
	if err != nil {
		return record.Address{}
	}
	return result.Addr
}

func encodeID(id uint32) []byte {
	b := make([]byte, 4)
	b[0] = byte(id)
	b[1] = byte(id >> 8)
	b[2] = byte(id >> 16)
	b[3] = byte(id >> 24)
	return b
}

func encodeRecord(id uint32, name string) []byte {
	rec := make([]byte, recordLength)
	copy(rec[0:4], encodeID(id))
	copy(rec[4:36], name)
	return rec
}

func decodeRecord(rec []byte) (uint32, string) {
	id := uint32(rec[0]) | uint32(rec[1])<<8 | uint32(rec[2])<<16 | uint32(rec[3])<<24
	name := strings.TrimRight(string(rec[4:36]), "\x00")
	return id, name
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
