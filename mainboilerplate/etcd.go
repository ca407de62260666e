package mainboilerplate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
)

// EtcdConfig configures the application Etcd session.
type EtcdConfig struct {
	Address       string        `long:"address" env:"ADDRESS" default:"http://localhost:2379" description:"Etcd service address endpoint"`
	CertFile      string        `long:"cert-file" env:"CERT_FILE" default:"" description:"Path to the client TLS certificate"`
	CertKeyFile   string        `long:"cert-key-file" env:"CERT_KEY_FILE" default:"" description:"Path to the client TLS private key"`
	TrustedCAFile string        `long:"trusted-ca-file" env:"TRUSTED_CA_FILE" default:"" description:"Path to the trusted CA for client verification of server certificates"`
	Prefix        string        `long:"prefix" env:"PREFIX" default:"/cinedex/" description:"Prefix of keys stored in Etcd"`
	DialTimeout   time.Duration `long:"dial-timeout" env:"DIAL_TIMEOUT" default:"5s" description:"Timeout of Etcd dials"`
}

// MustDial builds an Etcd client connection.
func (c *EtcdConfig) MustDial() *clientv3.Client {
	var tlsConfig *tls.Config
	if c.CertFile != "" {
		var err error
		tlsConfig, err = buildTLSConfig(c.CertFile, c.CertKeyFile, c.TrustedCAFile)
		Must(err, "failed to build TLS config")
	}

	// Block on the initial dial. If we're partitioned or mis-configured,
	// there's nothing actionable to do aside from wait (or be SIGTERM'd).
	var timer = time.AfterFunc(time.Second, func() {
		log.WithField("addr", c.Address).Warn("dialing Etcd is taking a while (is network okay?)")
	})
	defer timer.Stop()

	etcd, err := clientv3.New(clientv3.Config{
		Endpoints:            []string{c.Address},
		DialOptions:          []grpc.DialOption{grpc.WithBlock()},
		DialTimeout:          c.DialTimeout,
		DialKeepAliveTime:    time.Minute,
		DialKeepAliveTimeout: c.DialTimeout,
		AutoSyncInterval:     time.Minute,
		TLS:                  tlsConfig,
	})
	Must(err, "failed to build Etcd client", "addr", c.Address)
	Must(etcd.Sync(context.Background()), "initial Etcd endpoint sync failed")
	return etcd
}

func buildTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	var cert, err = tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	var cfg = &tls.Config{Certificates: []tls.Certificate{cert}}

	if caFile != "" {
		var pem, err = os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = x509.NewCertPool()
		if !cfg.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}
	}
	return cfg, nil
}
