// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live"
	"github.com/rditech/rixs-toolbox/live/handlers/client"
	"github.com/rditech/rixs-toolbox/live/handlers/ingress"
	"github.com/rditech/rixs-toolbox/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sevlyar/go-daemon"
	"github.com/skratchdot/open-golang/open"
	"golang.org/x/net/websocket"
)

var (
	openBrowser = flag.Bool("b", false, "open a browser window and connect to server")
	daemonize   = flag.Bool("d", false, "run the server in the background")
	cpuProfile  = flag.String("cpuprofile", "", "output file for cpu profiling")
	logLevel    = flag.String("log-level", "info", "log level")
	logJson     = flag.Bool("log-json", false, "log JSON instead of console text")
)

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options]

Serves live views of reduced RIXS spectra. Reduced streams are accepted on
/ingress and browser clients connect on /client.

environment:
  REDIS_ADDR   redis server, an embedded one is started when unset
  PORT         http port (default 8080)
  NAMESPACE    namespace of clients and streams (default everyone)
  MAX_NPR      max client messages per second
  SECURE_ONLY  redirect proxied http requests to https

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *daemonize {
		ctxt := &daemon.Context{}
		d, err := ctxt.Reborn()
		if err != nil {
			log.Fatal("unable to daemonize server:", err)
		}
		if d != nil {
			return
		}
		defer ctxt.Release()
	}

	zlog := logger.FromFlags(*logLevel, *logJson)

	// Define redis connection
	redisAddr := os.Getenv("REDIS_ADDR")
	if len(redisAddr) == 0 {
		s, err := miniredis.Run()
		if err != nil {
			log.Fatal("unable to start miniredis server: ", err)
		}
		defer s.Close()
		redisAddr = s.Addr()
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()
	ping := redisClient.Ping()
	if ping.Err() != nil {
		log.Fatalf("unable to ping redis server: %v\n", ping.Err())
	}
	zlog.Info().Str("addr", redisAddr).Str("status", ping.String()).Msg("connected to redis")

	namespace := os.Getenv("NAMESPACE")
	if namespace == "" {
		namespace = client.DefaultNamespace
	}

	// Define handlers
	clientHandler := &client.ClientHandler{
		Redis:      redisClient,
		Addr:       redisAddr,
		MaxNPR:     100,
		Namespaces: []string{namespace},
		Log:        logger.Component(zlog, "client"),
		Metrics:    data.NewMetrics(prometheus.DefaultRegisterer),
	}
	if len(os.Getenv("MAX_NPR")) > 0 {
		if max, err := strconv.ParseFloat(os.Getenv("MAX_NPR"), 64); err == nil {
			clientHandler.MaxNPR = max
		}
	}
	clientHandler.EnableCompression = true
	wsc := &ingress.WsCollector{
		Redis:            redisClient,
		Addr:             redisAddr,
		DefaultNamespace: namespace,
		Log:              logger.Component(zlog, "ingress"),
	}
	ingressHandler := websocket.Handler(wsc.Collect)
	webdataHandler := http.StripPrefix("/webdata/", http.FileServer(live.WebdataBox))
	rootHandler := http.StripPrefix("/", http.FileServer(live.WebdataBox))

	// Define http server and routes
	port := os.Getenv("PORT")
	if len(port) == 0 {
		port = "8080"
	}
	router := mux.NewRouter()
	router.Handle("/client", clientHandler)
	router.Handle("/ingress", ingressHandler)
	router.Handle("/metrics", gzhttp.GzipHandler(promhttp.Handler()))
	router.PathPrefix("/webdata/").Handler(gzhttp.GzipHandler(webdataHandler))
	router.PathPrefix("/").Handler(gzhttp.GzipHandler(rootHandler))

	srv := &http.Server{Addr: ":" + port, Handler: router}
	switch strings.ToLower(os.Getenv("SECURE_ONLY")) {
	case "true", "on":
		zlog.Info().Msg("enabling HTTP proxy securing middleware")
		srv.Handler = Secure(router, zlog)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		srv.Shutdown(context.Background())
	}()

	if *openBrowser {
		// shut down once every client has disconnected
		clientHandler.Srv = srv
		go func() {
			time.Sleep(10 * time.Millisecond)
			open.Run("http://localhost:" + port)
		}()
	}

	zlog.Info().Str("port", port).Str("namespace", namespace).Msg("http server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zlog.Error().Err(err).Msg("server stopped")
	}

	zlog.Info().Msg("successful quit")
}

// Secure redirects http requests arriving through an HTTP proxy to https.
func Secure(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if strings.ToLower(r.Header.Get("x-forwarded-proto")) == "http" {
				target := "https://" + r.Host + r.URL.Path
				if len(r.URL.RawQuery) > 0 {
					target += "?" + r.URL.RawQuery
				}
				log.Debug().Str("target", target).Msg("redirect")
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		},
	)
}
