package cli

import (
	"context"
	"os"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/awcullen/opcua/client"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const dialAttempts = 5

// DialUaClient opens an OPC-UA session to cfg.EndpointURL, retrying while the
// server comes up.
func DialUaClient(ctx context.Context, cfg component.Session, log *logrus.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithSecurityPolicyURI(ua.SecurityPolicyURINone),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	if cfg.Username != "" {
		opts = append(opts, client.WithUserNameIdentity(cfg.Username, cfg.Password))
	}
	if fileExists(cfg.CertificateFile) && fileExists(cfg.KeyFile) {
		opts = append(opts, client.WithClientCertificateFile(cfg.CertificateFile, cfg.KeyFile))
	}

	var lastErr error
	delay := 500 * time.Millisecond
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		ch, err := client.Dial(ctx, cfg.EndpointURL, opts...)
		if err == nil {
			log.WithField("Endpoint", cfg.EndpointURL).Infoln("OPC-UA session established ✅")
			return ch, nil
		}
		lastErr = err
		log.WithFields(logrus.Fields{
			"Endpoint": cfg.EndpointURL,
			"Attempt":  attempt,
			"Err":      err,
		}).Warnln("Couldn't connect, retrying 🔔")
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "dialing")
		case <-time.After(delay):
			delay *= 2
		}
	}
	return nil, errors.Wrapf(lastErr, "dialing %s", cfg.EndpointURL)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
