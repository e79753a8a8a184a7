package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
)

// Module provides a Vault client configured from VAULT_* environment
// variables; config.LoadConfig overlays database and redis secrets from it.
var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// FromEnvironment returns Module when VAULT_ADDR is set and an empty option
// otherwise.
func FromEnvironment() fx.Option {
	if os.Getenv("VAULT_ADDR") == "" {
		return fx.Options()
	}
	return Module
}

func ProvideVault() (*vault.Client, error) {
	client, err := vault.New(
		vault.WithEnvironment(),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}
