package main

import (
	"context"
	"testing"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRun_ReturnsStartupErrors(t *testing.T) {
	cases := map[string]struct {
		cfg   config.Config
		check func(t *testing.T, err error)
	}{
		"missing gateway secret": {
			cfg: config.Config{Payment: config.PaymentConfig{KeyID: "rzp_test"}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperror.ErrConfiguration)
			},
		},
		"bad mongo uri": {
			cfg: config.Config{
				Payment: config.PaymentConfig{KeyID: "rzp_test", KeySecret: "S"},
				MongoDB: config.MongoDBConfig{URI: "not-a-mongo-uri", Database: "jewelshop"},
			},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "MongoDB")
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := tc.cfg
			err := run(context.Background(), &cfg, zaptest.NewLogger(t))
			tc.check(t, err)
		})
	}
}
