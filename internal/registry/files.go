package registry

import (
	"fmt"
	"os"
)

// ReadRequestFiles - raw request and detached signature. A missing file is ErrConfig.
func ReadRequestFiles(requestFile, signatureFile string) ([]byte, []byte, error) {
	request, err := readFile(requestFile, "request")
	if err != nil {
		return nil, nil, err
	}

	signature, err := readFile(signatureFile, "signature")
	if err != nil {
		return nil, nil, err
	}

	return request, signature, nil
}

func readFile(name, kind string) ([]byte, error) {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no %s file: %s", ErrConfig, kind, name)
		}

		return nil, fmt.Errorf("%w: %s file: %w", ErrConfig, kind, err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s file: %w", ErrConfig, kind, err)
	}

	return data, nil
}
