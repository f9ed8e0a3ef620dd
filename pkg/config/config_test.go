package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8181
mongodb:
  uri: mongodb://localhost:27017
  database: jewelshop
payment:
  key_id: rzp_test_key
  key_secret: from-file
auth:
  jwt_secret: jwt-secret
kafka:
  brokers: ["localhost:9092"]
  topic: order-events
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileDefaultsAndEnv(t *testing.T) {
	t.Setenv("JEWELSHOP_PAYMENT_KEY_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8181", cfg.Server.Addr())
	assert.Equal(t, "from-env", cfg.Payment.KeySecret)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.False(t, cfg.Payment.AllowUnsignedVerification)
	assert.Equal(t, "orders", cfg.MongoDB.OrdersCollection)
	assert.Equal(t, 10*time.Minute, cfg.Redis.OrderTTL)
	assert.True(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.MySQL.Enabled())
}

func TestLoad_MissingGatewayCredentialsFailsFast(t *testing.T) {
	body := `
mongodb:
  uri: mongodb://localhost:27017
  database: jewelshop
auth:
  jwt_secret: jwt-secret
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment.key_id and payment.key_secret required")
}

func TestLoad_SecretFromEnvOnly(t *testing.T) {
	body := `
mongodb:
  uri: mongodb://localhost:27017
  database: jewelshop
payment:
  key_id: rzp_test_key
`
	t.Setenv("JEWELSHOP_PAYMENT_KEY_SECRET", "s3cret")
	t.Setenv("JEWELSHOP_AUTH_JWT_SECRET", "jwt")

	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Payment.KeySecret)
	assert.Equal(t, "jwt", cfg.Auth.JWTSecret)
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{Host: "db", Port: 3306, Username: "shop", Password: "pw", Database: "users"}
	assert.Equal(t, "shop:pw@tcp(db:3306)/users?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
	assert.True(t, c.Enabled())
}
