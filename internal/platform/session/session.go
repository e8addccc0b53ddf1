package session

import "encoding/json"

// Recognized payload keys. Everything else a handler stores round-trips
// through Extra.
const (
	keyUserID    = "user_id"
	keyUserName  = "user_name"
	keyUserRoles = "user_roles"
)

// Session is the per-visitor payload persisted under a session identifier.
// The typed fields are the keys the application core recognizes; Extra is an
// open extension bag so handler-added keys survive the round-trip.
type Session struct {
	UserID    string
	UserName  string
	UserRoles []string
	Extra     map[string]any
}

func New() *Session {
	return &Session{}
}

// Authenticated reports whether a user is bound to this session.
func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// HasAnyRole reports whether the session holds at least one of the given
// roles. A session without roles never matches.
func (s *Session) HasAnyRole(roles ...string) bool {
	for _, required := range roles {
		for _, has := range s.UserRoles {
			if has == required {
				return true
			}
		}
	}
	return false
}

// SetUser binds a verified user to the session. The values are copied
// verbatim and trusted until Clear; later changes to the user record do not
// affect an already-issued session.
func (s *Session) SetUser(id, name string, roles []string) {
	s.UserID = id
	s.UserName = name
	s.UserRoles = append([]string(nil), roles...)
}

// Clear empties the whole payload, extension keys included. The middleware's
// next save persists the empty mapping under the same identifier, so the
// session is emptied rather than destroyed.
func (s *Session) Clear() {
	s.UserID = ""
	s.UserName = ""
	s.UserRoles = nil
	s.Extra = nil
}

// MarshalJSON renders the session as a single flat object, recognized keys
// alongside extension keys, matching the stored wire shape.
func (s *Session) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		m[k] = v
	}
	if s.UserID != "" {
		m[keyUserID] = s.UserID
	}
	if s.UserName != "" {
		m[keyUserName] = s.UserName
	}
	if s.UserRoles != nil {
		m[keyUserRoles] = s.UserRoles
	}
	return json.Marshal(m)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*s = Session{}
	for k, raw := range m {
		switch k {
		case keyUserID:
			if err := json.Unmarshal(raw, &s.UserID); err != nil {
				return err
			}
		case keyUserName:
			if err := json.Unmarshal(raw, &s.UserName); err != nil {
				return err
			}
		case keyUserRoles:
			if err := json.Unmarshal(raw, &s.UserRoles); err != nil {
				return err
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if s.Extra == nil {
				s.Extra = make(map[string]any)
			}
			s.Extra[k] = v
		}
	}
	return nil
}
