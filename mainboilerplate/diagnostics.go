package mainboilerplate

import (
	_ "expvar" // Import for /debug/vars
	"fmt"
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Port uint16 `long:"port" env:"PORT" default:"0" description:"Port serving /debug endpoints. Zero disables a dedicated listener"`
}

// InitDiagnosticsAndRecover registers metrics and debugging services on the
// default ServeMux, and serves it on the configured port if non-zero.
// It returns a closure to be deferred, which recovers a panic and attempts
// to write a K8s termination message before re-panicking.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	// Package "net/http/pprof" serves /debug/pprof/.
	// Package "expvar" serves /debug/vars.
	http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	http.Handle("/debug/metrics", promhttp.Handler())

	if cfg.Port != 0 {
		var addr = fmt.Sprintf(":%d", cfg.Port)
		go func() {
			var err = http.ListenAndServe(addr, nil)
			log.WithFields(log.Fields{"err": err, "addr": addr}).Error("diagnostics server exited")
		}()
	}

	return func() {
		if r := recover(); r != nil {
			// Bug: https://github.com/kubernetes/kubernetes/issues/31839
			if f, err := os.OpenFile(k8sTerminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

// k8sTerminationLog is where Kubernetes retrieves a termination message.
const k8sTerminationLog = "/dev/termination-log"
