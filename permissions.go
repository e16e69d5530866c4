package drawchat

import "fmt"

// Permissions is the 6-character capability string sent with a credential.
//
//	"RDC___" administrator, can draw and chat
//	"ADC___" user, can draw and chat
//	"AD____" user, can draw but not chat
//	"A_C___" user, can chat but not draw
//	"A_____" user, can only watch
type Permissions string

const (
	PermAdmin  Permissions = "RDC___"
	PermUser   Permissions = "ADC___"
	PermDraw   Permissions = "AD____"
	PermChat   Permissions = "A_C___"
	PermViewer Permissions = "A_____"
)

// NewPermissions builds a permission string from its flags.
func NewPermissions(admin, draw, chat bool) Permissions {
	p := []byte("A_____")
	if admin {
		p[0] = 'R'
	}
	if draw {
		p[1] = 'D'
	}
	if chat {
		p[2] = 'C'
	}
	return Permissions(p)
}

func (p Permissions) Validate() error {
	if len(p) != 6 {
		return fmt.Errorf("%w: %q must be 6 characters", ErrInvalidPermissions, string(p))
	}
	allowed := [6]string{"RA_", "D_", "C_", "_", "_", "_"}
	for i := 0; i < len(p); i++ {
		ok := false
		for j := 0; j < len(allowed[i]); j++ {
			if p[i] == allowed[i][j] {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %q has %q at position %d", ErrInvalidPermissions, string(p), p[i], i+1)
		}
	}
	return nil
}

func (p Permissions) Admin() bool { return len(p) > 0 && p[0] == 'R' }
func (p Permissions) Draw() bool  { return len(p) > 1 && p[1] == 'D' }
func (p Permissions) Chat() bool  { return len(p) > 2 && p[2] == 'C' }
