// Package docs provides generated OpenAPI documentation.
//
// Readerpane API
//
//	@title			Readerpane API
//	@version		1.0
//	@description	Personal document library API for uploading, streaming, and rendering large PDFs.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/julia-Lukaszewska/readerpane
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/readerpane/serve.go -o ./swagger --parseDependency --parseInternal
