package history

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(op Operation, name string) Record {
	return Record{
		Time:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local),
		Operation: op,
		Peer:      "192.168.1.20",
		FileName:  name,
		Size:      "1.50 KB",
	}
}

func TestRecord_Line(t *testing.T) {
	line := testRecord(OperationSend, "notes.txt").Line()
	assert.Equal(t, "2026-03-14 09:26:53  Send  192.168.1.20  notes.txt  1.50 KB  ", line)
}

func TestParseLine(t *testing.T) {
	want := testRecord(OperationReceive, "my file.txt")
	got, err := ParseLine(want.Line())
	require.NoError(t, err)
	assert.True(t, want.Time.Equal(got.Time))
	assert.Equal(t, want.Operation, got.Operation)
	assert.Equal(t, want.FileName, got.FileName)
	assert.Equal(t, want.Size, got.Size)

	tests := []struct {
		name string
		line string
	}{
		{"too_few_fields", "2026-03-14 09:26:53  Send  "},
		{"bad_time", "yesterday  Send  1.2.3.4  a  1 B  "},
		{"bad_operation", "2026-03-14 09:26:53  Copy  1.2.3.4  a  1 B  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestFileSink_AppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "LetsShare", "logs.txt")
	sink := NewFileSink(path)

	require.NoError(t, sink.AppendRecord(testRecord(OperationSend, "a.bin")))
	require.NoError(t, sink.AppendRecord(testRecord(OperationReceive, "b.bin")))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.bin", records[0].FileName)
	assert.Equal(t, OperationReceive, records[1].Operation)
}

func TestFileSink_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.txt")
	sink := NewFileSink(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sink.AppendRecord(testRecord(OperationSend, "x.bin")))
		}()
	}
	wg.Wait()

	records, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestReadRecords_MissingFile(t *testing.T) {
	records, err := ReadRecords(filepath.Join(t.TempDir(), "absent.txt"))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecords_SkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.txt")
	content := testRecord(OperationSend, "ok.bin").Line() + "\n" +
		"garbage\n" +
		"\n" +
		testRecord(OperationReceive, "ok2.bin").Line() + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ok2.bin", records[1].FileName)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "logs.txt", filepath.Base(DefaultPath()))
}
