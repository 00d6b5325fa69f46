package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StructuredConfig
		wantErr error
	}{
		{
			name:    "zero config is valid",
			cfg:     StructuredConfig{},
			wantErr: nil,
		},
		{
			name: "negative token duration",
			cfg: StructuredConfig{
				App: App{TokenDuration: -time.Hour},
			},
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name: "negative kdf iterations",
			cfg: StructuredConfig{
				App: App{KDFIterations: -1},
			},
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name: "negative request timeout",
			cfg: StructuredConfig{
				Server: Server{RequestTimeout: -time.Second},
			},
			wantErr: ErrInvalidServerConfigs,
		},
		{
			name: "negative idle timeout",
			cfg: StructuredConfig{
				Session: Session{IdleTimeout: -time.Minute},
			},
			wantErr: ErrInvalidSessionConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	valid := StructuredConfig{
		App: App{
			TokenSignKey: "secret",
			TokenIssuer:  "vaultd",
		},
		Storage: Storage{DB: DB{DSN: "postgres://localhost/vault"}},
	}
	require.NoError(t, valid.ValidateServer())

	noDSN := valid
	noDSN.Storage.DB.DSN = ""
	assert.ErrorIs(t, noDSN.ValidateServer(), ErrInvalidStorageConfigs)

	noSignKey := valid
	noSignKey.App.TokenSignKey = ""
	assert.ErrorIs(t, noSignKey.ValidateServer(), ErrInvalidAppConfigs)

	noIssuer := valid
	noIssuer.App.TokenIssuer = ""
	assert.ErrorIs(t, noIssuer.ValidateServer(), ErrInvalidAppConfigs)
}
