// Package etcd is the etcd-backed lease store. Every lease key is attached to
// its own etcd lease so the cluster expires it.
package etcd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type Options struct {
	Endpoints   []string
	DialTimeout time.Duration

	TLSEnabled     bool
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
}

func (o Options) tlsConfig() (*tls.Config, error) {
	if !o.TLSEnabled {
		return nil, nil
	}

	info := transport.TLSInfo{
		TrustedCAFile: o.CACertPath,
		CertFile:      o.ClientCertPath,
		KeyFile:       o.ClientKeyPath,
	}
	cfg, err := info.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build etcd TLS config: %w", err)
	}
	return cfg, nil
}

// NewClient dials the cluster and checks that at least one endpoint answers.
func NewClient(ctx context.Context, opts Options) (*clientv3.Client, error) {
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("no etcd endpoints configured")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	tlsCfg, err := opts.tlsConfig()
	if err != nil {
		return nil, err
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
		TLS:         tlsCfg,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	if err := ping(ctx, cli, opts.DialTimeout); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return cli, nil
}

func ping(ctx context.Context, cli *clientv3.Client, timeout time.Duration) error {
	var lastErr error
	for _, ep := range cli.Endpoints() {
		statusCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := cli.Status(statusCtx, ep)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no etcd endpoint reachable: %w", lastErr)
}
