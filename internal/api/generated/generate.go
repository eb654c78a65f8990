// Пакет generated - HTTP-контракт Access Module.
// server.gen.go генерируется oapi-codegen из openapi.yaml, не редактировать вручную.
// spec.go встраивает openapi.yaml и отдаёт его через kin-openapi.
package generated

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.4.1 --config=oapi-codegen.yaml openapi.yaml
