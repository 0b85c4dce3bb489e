// Package imports pulls in every tool package so their init() registration
// runs. main.go blank-imports this package.
package imports

import (
	_ "github.com/pdfmill/pdfmill/internal/tools/pdfinspect"
	_ "github.com/pdfmill/pdfmill/internal/tools/pdftext"
	_ "github.com/pdfmill/pdfmill/internal/tools/toolhelp"
)
