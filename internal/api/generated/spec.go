package generated

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор openapi.yaml: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("валидация openapi.yaml: %w", err)
	}
	return doc, nil
})

// GetSwagger возвращает разобранный и провалидированный OpenAPI документ.
// Документ разбирается один раз.
func GetSwagger() (*openapi3.T, error) {
	return loadSpec()
}

// SpecJSON возвращает OpenAPI документ в JSON для /api/v1/openapi.json.
func SpecJSON() ([]byte, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
