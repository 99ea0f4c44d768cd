// Package cansim is a CAN transceiver driver simulated on a POSIX host.
//
// The driver maps the usual low-level CAN contract (start/stop, one transmit
// mailbox, one receive mailbox, a periodic interrupt service routine) onto a
// raw SocketCAN socket. Received frames cross from the poll-driven intake
// context to consumer code through a bounded ring buffer; the intake side
// never blocks and sheds frames when the buffer is saturated.
//
// A typical user starts the driver, drives ServeInterrupt from a ticker (or
// lets Run do it) and drains frames with Receive:
//
//	drv := cansim.New(0)
//	if err := drv.Start(cansim.Config{Interface: "vcan0"}); err != nil {
//		// a simulated link that cannot open is unrecoverable
//	}
//	go drv.Run(ctx, time.Millisecond)
//	for {
//		f, ok := drv.ReceiveTimeout(0, time.Second)
//		...
//	}
package cansim
