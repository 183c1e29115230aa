// Package attachments merges the attachments submitted in a round with the ones
// accumulated by earlier rounds and renders the manifest script that exposes them
// to the published site.
package attachments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// ManifestPath is where the manifest lives inside the published site.
const ManifestPath = fileset.Manifest

const manifestHeader = `// Auto-generated attachments file
// Access attachments via: window.attachments["filename.ext"]
`

// manifestLiteralRegex captures the object literal assigned in the manifest.
var manifestLiteralRegex = regexp.MustCompile(`(?s)window\.attachments\s*=\s*(\{.+\})\s*;`)

// Attachment is a named payload encoded as a data URI.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Result is the attachment state visible to the current round.
type Result struct {
	// All maps attachment name to data URI across every round so far.
	All map[string]string
	// Names lists the keys of All in lexical order.
	Names []string
	// Manifest is the regenerated manifest script, empty when All is empty.
	Manifest string
}

// Reconciler merges prior and incoming attachments.
type Reconciler struct {
	log *zap.Logger
}

// NewReconciler creates a Reconciler. A nil logger disables logging.
func NewReconciler(log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{log: log}
}

// Reconcile recovers the prior attachment set from priorManifest and overlays
// incoming on top of it. Incoming entries win on name collisions.
func (r *Reconciler) Reconcile(priorManifest string, incoming []Attachment) Result {
	all := r.Recover(priorManifest)
	if len(all) > 0 {
		r.log.Debug("loaded existing attachments", zap.Int("count", len(all)))
	}

	for _, a := range incoming {
		all[a.Name] = a.URL
		if info, err := Inspect(a.URL); err == nil {
			r.log.Debug("added attachment",
				zap.String("name", a.Name),
				zap.String("mime", info.MediaType),
				zap.Int("bytes", info.Size))
		} else {
			r.log.Warn("attachment is not a decodable data URI",
				zap.String("name", a.Name), zap.Error(err))
		}
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	return Result{
		All:      all,
		Names:    names,
		Manifest: Render(all),
	}
}

// Recover extracts the name→data-URI map embedded in a manifest script.
// A missing or unparsable literal yields an empty map.
func (r *Reconciler) Recover(manifest string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(manifest) == "" {
		return out
	}

	m := manifestLiteralRegex.FindStringSubmatch(manifest)
	if m == nil {
		r.log.Warn("manifest has no attachments literal, starting from an empty set")
		return out
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(m[1]), &parsed); err != nil {
		r.log.Warn("failed to parse existing attachments", zap.Error(err))
		return out
	}
	for k, v := range parsed {
		out[k] = v
	}
	return out
}

// Render serializes all into the manifest script. Keys are emitted in lexical
// order so equal inputs always render identically. An empty map renders as "".
func Render(all map[string]string) string {
	if len(all) == 0 {
		return ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		// map[string]string always encodes
		panic(fmt.Sprintf("attachments: encode manifest: %v", err))
	}

	return manifestHeader + "window.attachments = " + strings.TrimRight(buf.String(), "\n") + ";\n"
}
