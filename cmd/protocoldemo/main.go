// Command protocoldemo runs a two-message greeting protocol over a real TCP
// loopback connection, one process playing both sides: a client connection
// and a server connection, each driven by its own generated op-tree and
// both managed by one collection and one runner. It exists to show the
// generator and the runner cooperating against real sockets rather than
// the in-memory byte buffers the test suite drives them with.
//
// Usage:
//
//	go run ./cmd/protocoldemo                       # ephemeral loopback port
//	go run ./cmd/protocoldemo -addr 127.0.0.1:9000  # fixed port
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/collection"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/interpreter"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/observability"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/runner"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/protocol/ast"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/protocol/gen"
)

// stdLogger implements runner.Logger using the standard library log package.
type stdLogger struct{}

func (l *stdLogger) Debug(msg string, kv ...any) { log.Printf("[DEBUG] %s %v", msg, kv) }
func (l *stdLogger) Info(msg string, kv ...any)  { log.Printf("[INFO] %s %v", msg, kv) }
func (l *stdLogger) Warn(msg string, kv ...any)  { log.Printf("[WARN] %s %v", msg, kv) }
func (l *stdLogger) Error(msg string, kv ...any) { log.Printf("[ERROR] %s %v", msg, kv) }

// greetProtocol declares a client Hello carrying a name, answered by a
// server Greeting carrying a text line, both newline-terminated dynamic
// strings.
func greetProtocol() *ast.Protocol {
	proto := ast.NewProtocol("Greet")
	mustAdd(proto, &ast.Message{
		Name:  "Hello",
		When:  "Start",
		Then:  "Greeted",
		Agent: ast.AgentClient,
		Data: []ast.Field{
			{Name: "name", Type: ast.FieldType{Name: "str", Params: map[string]any{"sizing": "Dynamic"}}},
		},
		Parts: []ast.Part{
			{Kind: ast.PartTokenGroup, Fields: []string{"name"}},
			{Kind: ast.PartTerminator, Terminator: []byte("\n")},
		},
	})
	mustAdd(proto, &ast.Message{
		Name:  "Greeting",
		When:  "Greeted",
		Then:  "Done",
		Agent: ast.AgentServer,
		Data: []ast.Field{
			{Name: "text", Type: ast.FieldType{Name: "str", Params: map[string]any{"sizing": "Dynamic"}}},
		},
		Parts: []ast.Part{
			{Kind: ast.PartTokenGroup, Fields: []string{"text"}},
			{Kind: ast.PartTerminator, Terminator: []byte("\n")},
		},
	})
	return proto
}

func mustAdd(proto *ast.Protocol, msg *ast.Message) {
	if err := proto.AddMessage(msg); err != nil {
		log.Fatalf("protocoldemo: %v", err)
	}
}

func noopCallback(context.Context, []value.Value) value.Value {
	return value.Int32Value(0)
}

// pumpIO shuttles bytes between conn and ictx: a reader goroutine feeds
// arrived bytes to AppendInbound and wakes the interpreter loop, a writer
// goroutine polls PullOutbound and flushes it to conn. The core never
// touches conn directly; this is the host boundary every I/O operation
// blocks against.
func pumpIO(conn net.Conn, ictx *interpreter.Context, signals *collection.Signals) {
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				ictx.AppendInbound(buf[:n])
				signals.WakeUpInterpreter.Notify()
			}
			if err != nil {
				ictx.MarkEOF()
				signals.WakeUpInterpreter.Notify()
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			// Read the exit flag before polling the queue: the runner
			// flushes a connection's final bytes before marking it exited,
			// so an exited observation means the subsequent pull saw
			// everything there will ever be.
			exited := ictx.Exited()
			out := ictx.PullOutbound()
			if len(out) > 0 {
				n, err := conn.Write(out)
				if err != nil {
					return
				}
				ictx.AcknowledgeWrite(n)
				continue
			}
			if exited {
				return
			}
			<-ticker.C
		}
	}()
}

func resultString(v value.Value) string {
	if v.Kind == value.KindOctets {
		return string(v.Octets)
	}
	return fmt.Sprintf("%+v", v)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:0", "loopback address to listen and dial")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP gRPC endpoint; tracing is a no-op if empty")
	flag.Parse()

	logger := &stdLogger{}

	if *otlpEndpoint != "" {
		shutdownTracer, err := observability.InitTracer("protocoldemo", *otlpEndpoint)
		if err != nil {
			log.Fatalf("protocoldemo: init tracer: %v", err)
		}
		defer shutdownTracer(context.Background())
	}

	proto := greetProtocol()
	clientTree, err := gen.Client(proto)
	if err != nil {
		log.Fatalf("protocoldemo: build client tree: %v", err)
	}
	serverTree, err := gen.Server(proto)
	if err != nil {
		log.Fatalf("protocoldemo: build server tree: %v", err)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("protocoldemo: listen: %v", err)
	}
	defer ln.Close()
	logger.Info("listening", "addr", ln.Addr().String())

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		log.Fatalf("protocoldemo: dial: %v", err)
	}
	defer clientConn.Close()

	var serverConn net.Conn
	select {
	case serverConn = <-accepted:
	case err := <-acceptErr:
		log.Fatalf("protocoldemo: accept: %v", err)
	}
	defer serverConn.Close()

	clientCtx := interpreter.New(clientTree.Root)
	serverCtx := interpreter.New(serverTree.Root)

	coll := collection.New()
	if err := coll.Insert(1, clientCtx); err != nil {
		log.Fatalf("protocoldemo: insert client: %v", err)
	}
	if err := coll.Insert(2, serverCtx); err != nil {
		log.Fatalf("protocoldemo: insert server: %v", err)
	}

	var mu sync.Mutex
	var greetedName string

	callbacks := map[string]runner.CallbackFunc{
		"provide_Hello": func(context.Context, []value.Value) value.Value {
			return value.DictionaryValue(value.NewDictionary(map[string]value.Value{
				"name": value.OctetsValue("demo-client"),
			}))
		},
		"deliver_Hello": func(ctx context.Context, args []value.Value) value.Value {
			name := string(args[0].Dict.Values["name"].Octets)
			mu.Lock()
			greetedName = name
			mu.Unlock()
			logger.Info("hello_received", "name", name)
			return value.Int32Value(0)
		},
		"provide_Greeting": func(context.Context, []value.Value) value.Value {
			mu.Lock()
			name := greetedName
			mu.Unlock()
			return value.DictionaryValue(value.NewDictionary(map[string]value.Value{
				"text": value.OctetsValue(fmt.Sprintf("hello, %s", name)),
			}))
		},
		"deliver_Greeting": func(ctx context.Context, args []value.Value) value.Value {
			text := string(args[0].Dict.Values["text"].Octets)
			logger.Info("greeting_received", "text", text)
			return value.Int32Value(0)
		},
		"transitioned_Hello":    noopCallback,
		"transitioned_Greeting": noopCallback,
	}

	r := runner.New(coll, callbacks, logger)
	r.SetExitWhenDone(true)

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown_signal_received")
		cancel()
	}()

	r.Start(runCtx)
	pumpIO(clientConn, clientCtx, coll.Signals)
	pumpIO(serverConn, serverCtx, coll.Signals)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logger.Info("client_exited", "result", resultString(clientCtx.Result()))
	}()
	go func() {
		defer wg.Done()
		logger.Info("server_exited", "result", resultString(serverCtx.Result()))
	}()
	wg.Wait()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "err", err)
	}

	fmt.Println("protocoldemo: both connections reached their terminal state")
}
