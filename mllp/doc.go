// Package mllp provides MLLP (Minimal Lower Layer Protocol) support for HL7 v2.x.
//
// MLLP is the standard transport protocol for HL7 messages over TCP/IP. It defines
// a simple framing mechanism using control characters to delimit message boundaries.
//
// # MLLP Frame Format
//
// An MLLP frame consists of:
//   - Start Block: 0x0B (vertical tab, VT)
//   - HL7 Message Data
//   - End Block: 0x1C (file separator, FS)
//   - Carriage Return: 0x0D (CR)
//
// Frame structure:
//
//	<VT>...HL7 Message Data...<FS><CR>
//	 |                        |   |
//	 0x0B                   0x1C 0x0D
//
// # Server Usage
//
// Create an MLLP server to receive HL7 messages:
//
//	// Define message handler
//	acks := ack.NewBuilder()
//	handler := mllp.HandlerFunc(func(ctx context.Context, msg hl7.Message) (hl7.Message, error) {
//	    // Process the message
//	    log.Printf("Received: %s", msg.Type())
//
//	    // Generate acknowledgment
//	    return acks.Accept(msg)
//	})
//
//	// Create the server and serve on a listener
//	server := mllp.NewServer(mllp.WithHandler(handler))
//	ln, err := net.Listen("tcp", ":2575")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := server.Serve(ln); err != nil {
//	    log.Fatal(err)
//	}
//
// Server with options:
//
//	server := mllp.NewServer(
//	    mllp.WithHandler(handler),
//	    mllp.WithReadTimeout(30*time.Second),
//	    mllp.WithWriteTimeout(30*time.Second),
//	    mllp.WithMaxConnections(50),
//	    mllp.WithTLSConfig(tlsConfig),
//	)
//
// Serve returns ErrNoHandler when no handler is configured. Incoming
// messages are limited to MaxMessageSize; no server option changes that
// limit.
//
// # Client Usage
//
// Create an MLLP client to send HL7 messages:
//
//	// Connect to server
//	client, err := mllp.Dial("localhost:2575")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Send message and receive ACK
//	ackMsg, err := client.Send(ctx, msg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Check acknowledgment
//	ackCode, _ := ackMsg.Get("MSA.1")
//	if ackCode != "AA" {
//	    log.Printf("Message not accepted: %s", ackCode)
//	}
//
// Client with options:
//
//	client, err := mllp.Dial("localhost:2575",
//	    mllp.WithTimeout(10*time.Second),
//	    mllp.WithTLS(tlsConfig),
//	    mllp.WithRetry(3, time.Second),
//	)
//
// Dial connects immediately; NewClient takes the same options and
// connects on the first Send. This package has no connection pool type.
//
// # Reading and Writing Frames
//
// For low-level control, use the Reader and Writer types:
//
// Reading MLLP frames:
//
//	reader := mllp.NewReader(conn, mllp.MaxMessageSize)
//	for {
//	    data, err := reader.ReadMessage()
//	    if err != nil {
//	        if err == io.EOF {
//	            break
//	        }
//	        log.Fatal(err)
//	    }
//	    // data contains the unwrapped HL7 message
//	    msg, _ := parser.Parse(data)
//	}
//
// ReadMessage returns io.EOF when the stream ends between messages and
// ErrConnectionClosed when it ends inside one.
//
// Writing MLLP frames:
//
//	writer := mllp.NewWriter(conn)
//	if err := writer.WriteMessage(hl7Data); err != nil {
//	    log.Fatal(err)
//	}
//
// # Framing Helpers
//
//	// Extract message from frame
//	msg, err := mllp.Unframe(framedData)
//	if err != nil {
//	    // ErrInvalidStartBlock or ErrInvalidEndBlock
//	    log.Fatal("invalid MLLP frame:", err)
//	}
//
//	// Wrap message in MLLP frame
//	framedData := mllp.Frame(hl7Data)
//
// # Error Handling
//
// MLLP operations return sentinel errors that can be matched with errors.Is:
//
//	data, err := reader.ReadMessage()
//	switch {
//	case err == nil:
//	    // data holds one complete message
//	case errors.Is(err, mllp.ErrMessageTooLarge):
//	    log.Printf("Message too large: %v", err)
//	case errors.Is(err, mllp.ErrConnectionClosed):
//	    log.Printf("Connection closed mid-message: %v", err)
//	default:
//	    log.Printf("Read failed: %v", err)
//	}
//
// # TLS Support
//
// Enable TLS for secure connections:
//
// Server:
//
//	cert, _ := tls.LoadX509KeyPair("server.crt", "server.key")
//	tlsConfig := &tls.Config{
//	    Certificates: []tls.Certificate{cert},
//	    MinVersion:   tls.VersionTLS12,
//	}
//
//	server := mllp.NewServer(
//	    mllp.WithHandler(handler),
//	    mllp.WithTLSConfig(tlsConfig),
//	)
//
// Client:
//
//	tlsConfig := &tls.Config{
//	    InsecureSkipVerify: false,
//	    MinVersion:         tls.VersionTLS12,
//	}
//
//	client, _ := mllp.Dial("localhost:2575",
//	    mllp.WithTLS(tlsConfig),
//	)
//
// # Graceful Shutdown
//
// Properly shutdown server connections:
//
//	server := mllp.NewServer(mllp.WithHandler(handler))
//	ln, err := net.Listen("tcp", ":2575")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start server in goroutine
//	go func() {
//	    if err := server.Serve(ln); err != nil {
//	        log.Printf("Server stopped: %v", err)
//	    }
//	}()
//
//	// Handle shutdown signal
//	sigCh := make(chan os.Signal, 1)
//	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
//	<-sigCh
//
//	// Graceful shutdown with timeout
//	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := server.Shutdown(shutdownCtx); err != nil {
//	    log.Printf("Shutdown error: %v", err)
//	}
//
// # Example: Complete MLLP Service
//
//	func main() {
//	    acks := ack.NewBuilder()
//
//	    handler := mllp.HandlerFunc(func(ctx context.Context, msg hl7.Message) (hl7.Message, error) {
//	        // Log message receipt
//	        sender, _ := msg.Get("MSH.3")
//	        log.Printf("Received %s from %s", msg.Type(), sender)
//
//	        // Process based on message type
//	        switch msg.Type() {
//	        case "ADT^A01":
//	            if err := handleAdmit(msg); err != nil {
//	                return acks.Error(msg, err)
//	            }
//	        case "ORU^R01":
//	            if err := handleLabResult(msg); err != nil {
//	                return acks.Error(msg, err)
//	            }
//	        default:
//	            return acks.Reject(msg, "Unsupported message type")
//	        }
//
//	        return acks.Accept(msg)
//	    })
//
//	    server := mllp.NewServer(
//	        mllp.WithHandler(handler),
//	        mllp.WithReadTimeout(60*time.Second),
//	        mllp.WithWriteTimeout(30*time.Second),
//	    )
//
//	    ln, err := net.Listen("tcp", ":2575")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println("Starting MLLP server on :2575")
//	    if err := server.Serve(ln); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Constants
//
// MLLP framing constants are exported for custom implementations:
//
//	mllp.StartBlock      // 0x0B - vertical tab
//	mllp.EndBlock        // 0x1C - file separator
//	mllp.CarriageReturn  // 0x0D - carriage return
package mllp
