package avatar3d

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
)

var ErrNoMeshes = errors.New("no meshes in model")

// Model describes a loaded avatar file. Only the data the face pipeline
// needs is kept: which morph targets and expression clips the file defines.
type Model struct {
	Path         string
	Name         string
	MorphTargets []string
	Clips        []string
}

func (m *Model) HasClip(idx BlendshapeIndex) bool {
	if m == nil || !idx.Valid() {
		return false
	}
	for _, c := range m.Clips {
		if BlendshapeIndexFromName(c) == idx {
			return true
		}
	}
	for _, t := range m.MorphTargets {
		if BlendshapeIndexFromName(t) == idx {
			return true
		}
	}
	return false
}

func LoadModel(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return modelFromDocument(path, doc)
}

func modelFromDocument(path string, doc *gltf.Document) (*Model, error) {
	if len(doc.Meshes) == 0 {
		return nil, ErrNoMeshes
	}

	m := &Model{
		Path: path,
		Name: filepath.Base(path),
	}

	seen := make(map[string]bool)
	for _, mesh := range doc.Meshes {
		for _, name := range targetNames(mesh) {
			if !seen[name] {
				seen[name] = true
				m.MorphTargets = append(m.MorphTargets, name)
			}
		}
	}

	if raw, ok := doc.Extensions["VRM"]; ok {
		meta, clips, err := vrmClips(raw)
		if err != nil {
			return nil, fmt.Errorf("read VRM extension: %w", err)
		}
		if meta != "" {
			m.Name = meta
		}
		m.Clips = clips
	}

	return m, nil
}

func targetNames(mesh *gltf.Mesh) []string {
	extras, ok := mesh.Extras.(map[string]interface{})
	if !ok {
		return nil
	}
	names, ok := extras["targetNames"].([]interface{})
	if !ok {
		return nil
	}

	result := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

type vrmExtension struct {
	Meta struct {
		Title string `json:"title"`
	} `json:"meta"`
	BlendShapeMaster struct {
		BlendShapeGroups []struct {
			Name       string `json:"name"`
			PresetName string `json:"presetName"`
		} `json:"blendShapeGroups"`
	} `json:"blendShapeMaster"`
}

// vrmClips reads the VRM 0.x blend shape groups. Unknown extensions reach us
// either as raw JSON or as an already decoded value.
func vrmClips(ext interface{}) (string, []string, error) {
	var raw []byte
	switch v := ext.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", nil, err
		}
		raw = b
	}

	var vrm vrmExtension
	if err := json.Unmarshal(raw, &vrm); err != nil {
		return "", nil, err
	}

	clips := make([]string, 0, len(vrm.BlendShapeMaster.BlendShapeGroups))
	for _, g := range vrm.BlendShapeMaster.BlendShapeGroups {
		name := g.Name
		if g.PresetName != "" && g.PresetName != "unknown" {
			name = g.PresetName
		}
		clips = append(clips, name)
	}
	return vrm.Meta.Title, clips, nil
}
