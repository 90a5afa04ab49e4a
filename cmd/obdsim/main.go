package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/abdulwahed-sweden/obd-simulator/internal/bridge"
	"github.com/abdulwahed-sweden/obd-simulator/internal/elm"
	"github.com/abdulwahed-sweden/obd-simulator/internal/serialport"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
	"github.com/abdulwahed-sweden/obd-simulator/internal/version"
)

var (
	port     = flag.String("port", "", "Serial port to serve the adapter on (e.g. /dev/ttyUSB0)")
	baud     = flag.Int("baud", 38400, "Serial baud rate")
	listen   = flag.String("listen", "", "Listen address for the WebSocket bridge (e.g. :8080)")
	profile  = flag.String("profile", "sedan", "Vehicle profile name")
	profiles = flag.String("profiles", "", "Optional YAML file with additional vehicle profiles")
	seed     = flag.Int64("seed", 0, "Noise seed (0 uses the current time)")
	stdio    = flag.Bool("stdio", false, "Serve the adapter over stdin/stdout")
)

// stdioPort adapts the process stdin/stdout to the session transport.
// Stdin reads block, so it runs wrapped in a serialport.PumpPort to get
// the bounded-timeout reads the session loop depends on.
type stdioPort struct{}

func (stdioPort) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioPort) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioPort) Close() error                { return nil }

func loadParameters() (vehicle.Parameters, error) {
	if *profiles != "" {
		loaded, err := vehicle.LoadProfiles(*profiles)
		if err != nil {
			return vehicle.Parameters{}, fmt.Errorf("failed to load profiles: %w", err)
		}
		if params, ok := loaded[strings.ToLower(*profile)]; ok {
			return params, nil
		}
	}
	params, ok := vehicle.Profile(*profile)
	if !ok {
		return vehicle.Parameters{}, fmt.Errorf("unknown profile %q (built in: %s)",
			*profile, strings.Join(vehicle.ProfileNames(), ", "))
	}
	return params, nil
}

func main() {
	flag.Parse()

	if *port == "" && *listen == "" && !*stdio {
		log.Fatal("at least one of -port, -listen or -stdio is required")
	}

	log.Printf("obdsim %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	params, err := loadParameters()
	if err != nil {
		log.Fatalf("%v", err)
	}

	noiseSeed := *seed
	if noiseSeed == 0 {
		noiseSeed = time.Now().UnixNano()
	}
	noise := vehicle.NewRandomNoise(noiseSeed)
	car := vehicle.NewModel(params, noise)
	log.Printf("vehicle profile %q loaded", *profile)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// serve the adapter on a local serial port
	if *port != "" {
		opts := serialport.Options{BaudRate: *baud}
		serial, err := serialport.Open(*port, opts)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *port, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := elm.NewSession(serial, car, elm.WithSessionNoise(noise))
			if err := sess.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("serial session ended: %v", err)
			}
			log.Print("serial session terminated")
		}()
	}

	// serve the adapter over stdin/stdout
	if *stdio {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := elm.NewSession(serialport.NewPumpPort(stdioPort{}), car, elm.WithSessionNoise(noise))
			if err := sess.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("stdio session ended: %v", err)
			}
			log.Print("stdio session terminated")
		}()
	}

	// WebSocket bridge goroutine
	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := http.NewServeMux()
			bridge.NewServer(car).Attach(mux)

			server := &http.Server{
				Addr:    *listen,
				Handler: mux,
			}

			go func() {
				log.Printf("bridge listening on %s", *listen)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start bridge server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down bridge server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("bridge server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("bridge server force close error: %v", err)
				}
			}

			log.Printf("bridge server routine stopped")
		}()
	}

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
