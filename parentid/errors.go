//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package parentid

import "errors"

// ErrMalformed indicates a parent tag that does not match the "U:I:L"
// wire format. Encountering it during aggregation is always fatal
// (spec: ParentIDError).
var ErrMalformed = errors.New("parentid: malformed tag")
