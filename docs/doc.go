// Package docs provides generated OpenAPI documentation.
//
// Scrapetab API
//
//	@title			Scrapetab API
//	@version		1.0
//	@description	LLM-powered extraction of structured rows from raw page text.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/scrapetab/scrapetab
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/scrapetab/serve.go -o ./swagger --parseDependency --parseInternal
