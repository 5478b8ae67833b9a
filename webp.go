package imagechain

import "github.com/mvarner/imagechain/core"

// WebP returns a spec function that unconditionally rewrites the context
// to .webp output, prepending a force_webp processor ahead of the given
// list.
func WebP(processors []core.Spec) SpecFunc {
	return func(pc *core.Context) {
		pc.Request.Extension = ".webp"
		pc.Request.Processors = append([]core.Spec{core.NewSpec("force_webp")}, processors...)
		pc.ReseedFormat()
	}
}
