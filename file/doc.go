// Package file implements the LetsShare transfer engine: streaming one file
// between the local filesystem and an established connection, with progress
// tracking, size formatting and completion records.
//
// # Overview
//
// The package provides three components:
//
//   - Transfer: streams the payload in 32 KiB chunks, flushing at every
//     1 MiB boundary, and verifies the byte count against the announced size
//   - Tracker: derives percentage, throughput and elapsed time from
//     cumulative byte counts
//   - FormatSize: renders byte counts as "1.50 KB" style strings
//
// # Sending
//
//	transfer, err := file.NewOutgoing("/home/me/movie.mkv")
//	if err != nil {
//	    return err
//	}
//	transfer.OnProgress(func(p file.Progress) {
//	    fmt.Println(p) // 42% (420.00 MB/1000.00 MB) - 11.20 MB/s
//	})
//	if err := transfer.Start(); err != nil {
//	    return err
//	}
//	err = transfer.Send(bufio.NewWriterSize(conn, 32768))
//
// The sender sleeps for DefaultPacingDelay after each flush boundary so a
// slow receiver is not flooded. SetPacingDelay(0) disables it.
//
// # Receiving
//
//	transfer, err := file.NewIncoming(downloadDir, meta.FileName, meta.FileSize, true)
//	if err != nil {
//	    return err // ErrUnsafeFileName for names like ".."
//	}
//	transfer.Peer = remoteIP
//	transfer.SetRecorder(historySink)
//	if err := transfer.Start(); err != nil {
//	    return err
//	}
//	err = transfer.Receive(conn)
//
// A stream that ends before FileSize bytes fails with ErrIncompleteTransfer
// and leaves the partial file on disk.
//
// # Transfer States
//
//	Pending -> Running -> Completed
//	                   -> Cancelled (Cancel was called)
//	                   -> Error
//
// A Transfer never closes the connection it streams over. Cancel only marks
// the transfer; the owner must also close the connection so that a blocked
// read or write returns.
//
// # Deterministic Testing
//
// Throughput and elapsed time are derived through the TimeProvider interface:
//
//	transfer.SetTimeProvider(mockTime)
package file
