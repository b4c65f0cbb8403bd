package swagger

import _ "embed"

// OpenAPI is the embedded API specification served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
