package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/normanking/mirrorcore/internal/avatar3d"
	"github.com/normanking/mirrorcore/internal/face"
)

// Override commands. Empty content ends the override.
const (
	CmdFaceSwitchClip   = "FaceSwitchClip"
	CmdWordToMotionClip = "WordToMotionClip"
	CmdPerfectSync      = "ExTrackerEnablePerfectSync"
)

// RegisterOverrides assigns the override and perfect-sync commands.
// Clip names must be known keys and, with a model loaded, exist on it.
func RegisterOverrides(receiver face.CommandReceiver, p *Pipeline, models *ModelHost) {
	bindOverride := func(command string, kind avatar3d.OverrideKind) {
		receiver.AssignCommandHandler(command, func(content string) error {
			name := strings.TrimSpace(content)
			if name == "" {
				p.c.Override.End(kind)
				return nil
			}
			idx := avatar3d.BlendshapeIndexFromName(name)
			if !idx.Valid() {
				return &face.PayloadError{Command: command, Content: content, Err: face.ErrUnknownBlendshape}
			}
			if m := models.Model(); m != nil && !m.HasClip(idx) {
				return &face.PayloadError{
					Command: command,
					Content: content,
					Err:     fmt.Errorf("model %q has no clip %s", m.Name, idx),
				}
			}
			p.c.Override.Begin(kind, idx)
			return nil
		})
	}
	bindOverride(CmdFaceSwitchClip, avatar3d.OverrideFaceSwitch)
	bindOverride(CmdWordToMotionClip, avatar3d.OverrideWordToMotion)

	receiver.AssignCommandHandler(CmdPerfectSync, func(content string) error {
		v, err := strconv.ParseBool(strings.TrimSpace(content))
		if err != nil {
			return &face.PayloadError{Command: CmdPerfectSync, Content: content, Err: err}
		}
		p.SetPerfectSync(v)
		return nil
	})
}
