// Package history persists one line per completed LetsShare transfer and
// reads the log back.
//
// Each line holds five fields, every one followed by a two-space delimiter:
//
//	2026-01-02 15:04:05  Send  192.168.1.20  movie.mkv  1.50 GB  
//
// Failed and cancelled transfers are never recorded.
//
//	sink := history.NewFileSink(history.DefaultPath())
//	err := sink.AppendRecord(record)
//	records, err := history.ReadRecords(history.DefaultPath())
package history
