package main

import (
	"flag"
	"os"
	"time"

	"github.com/kflux-io/sockbuf"
	"github.com/kflux-io/sockbuf/internal/logging"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1", "address to listen on")
		port    = flag.Int("port", 9000, "port to listen on")
		verbose = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	mgr := sockbuf.New(&sockbuf.Config{
		UseSendfile:  true,
		Logger:       logger,
		RaiseFDLimit: true,
	})

	srv, err := mgr.Listen(*addr, *port)
	if err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}
	logger.Info("echo server listening", "addr", *addr, "port", *port)

	buf := make([]byte, 4096)
	for {
		uuid, err := mgr.Accept(srv)
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		for {
			n, err := mgr.Read(uuid, buf)
			if err != nil {
				logger.Debug("read failed", "uuid", uuid, "error", err)
				break
			}
			if n == 0 {
				time.Sleep(time.Millisecond)
				continue
			}
			if err := mgr.Write2(sockbuf.WriteOptions{UUID: uuid, Buffer: buf[:n]}); err != nil {
				logger.Debug("write failed", "uuid", uuid, "error", err)
			}
			if err := mgr.Close(uuid); err != nil {
				logger.Debug("close failed", "uuid", uuid, "error", err)
			}
			break
		}
	}
}
