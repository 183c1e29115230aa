package attachments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pngURI = "data:image/png;base64,iVBORw0KGgo="
	csvURI = "data:text/csv;base64,bmFtZSxhZ2UKYm9iLDQy"
)

func TestReconcile_FirstRound(t *testing.T) {
	r := NewReconciler(nil)

	res := r.Reconcile("", []Attachment{
		{Name: "logo.png", URL: pngURI},
		{Name: "data.csv", URL: csvURI},
	})

	assert.Equal(t, map[string]string{"logo.png": pngURI, "data.csv": csvURI}, res.All)
	assert.Equal(t, []string{"data.csv", "logo.png"}, res.Names)
	assert.Contains(t, res.Manifest, "window.attachments = {")
	assert.Contains(t, res.Manifest, `"logo.png": "`+pngURI+`"`)
}

func TestReconcile_NoAttachments(t *testing.T) {
	res := NewReconciler(nil).Reconcile("", nil)

	assert.Empty(t, res.All)
	assert.Empty(t, res.Names)
	assert.Equal(t, "", res.Manifest)
}

func TestReconcile_OverwritesSameName(t *testing.T) {
	r := NewReconciler(nil)
	prior := Render(map[string]string{"data.csv": csvURI, "logo.png": pngURI})

	newer := "data:text/csv;base64,eCx5CjEsMg=="
	res := r.Reconcile(prior, []Attachment{{Name: "data.csv", URL: newer}})

	assert.Equal(t, newer, res.All["data.csv"])
	assert.Equal(t, pngURI, res.All["logo.png"], "prior attachment must be retained")
	assert.Len(t, res.All, 2)
}

func TestReconcile_Idempotent(t *testing.T) {
	r := NewReconciler(nil)
	prior := Render(map[string]string{"logo.png": pngURI})
	incoming := []Attachment{{Name: "data.csv", URL: csvURI}}

	once := r.Reconcile(prior, incoming)
	twice := r.Reconcile(once.Manifest, incoming)

	assert.Equal(t, once.All, twice.All)
	assert.Equal(t, once.Manifest, twice.Manifest)
}

func TestRecover_DegradesOnCorruptManifest(t *testing.T) {
	r := NewReconciler(nil)

	tests := []struct {
		name     string
		manifest string
	}{
		{name: "empty", manifest: ""},
		{name: "no literal", manifest: "console.log('hi');"},
		{name: "broken json", manifest: "window.attachments = {\"a\": };"},
		{name: "non string values", manifest: "window.attachments = {\"a\": 1};"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Recover(tt.manifest)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestRecover_RoundTrip(t *testing.T) {
	all := map[string]string{"b.txt": "data:text/plain;base64,Yg==", "a.png": pngURI}

	got := NewReconciler(nil).Recover(Render(all))

	assert.Equal(t, all, got)
}

func TestRender_Deterministic(t *testing.T) {
	a := Render(map[string]string{"z": "data:,z", "a": "data:,a", "m": "data:,m"})
	b := Render(map[string]string{"m": "data:,m", "z": "data:,z", "a": "data:,a"})

	assert.Equal(t, a, b)
	assert.Less(t, strings.Index(a, `"a"`), strings.Index(a, `"m"`))
	assert.Less(t, strings.Index(a, `"m"`), strings.Index(a, `"z"`))
}

func TestDecode(t *testing.T) {
	mediaType, data, err := Decode(csvURI)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mediaType)
	assert.Equal(t, "name,age\nbob,42", string(data))

	_, _, err = Decode("not a data uri")
	assert.Error(t, err)
}
