package imagechain

import (
	"strings"

	"github.com/mvarner/imagechain/core"
)

// defaultWebsafe is the set of extensions browsers render natively.
var defaultWebsafe = []string{".png", ".gif", ".jpg", ".jpeg"}

// Websafe returns a spec function that guarantees browser-renderable
// output.  Contexts whose current extension is already in the accepted set
// keep the given processors unchanged; anything else is rewritten to .jpg
// with a force_jpeg processor prepended.  The check runs against the
// requested output extension, not the decoded format.
func Websafe(processors []core.Spec, extensions ...string) SpecFunc {
	if len(extensions) == 0 {
		extensions = defaultWebsafe
	}
	accepted := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		accepted[strings.ToLower(e)] = true
	}
	return func(pc *core.Context) {
		if accepted[strings.ToLower(pc.Request.Extension)] {
			pc.Request.Processors = processors
			return
		}
		pc.Request.Extension = ".jpg"
		pc.Request.Processors = append([]core.Spec{core.NewSpec("force_jpeg")}, processors...)
		pc.ReseedFormat()
	}
}
