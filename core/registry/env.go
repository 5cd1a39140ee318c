package registry

import (
	"os"

	"github.com/leofalp/sagent/providers/ai"
)

func requireEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", ai.MissingEnvError(name)
	}
	return value, nil
}
