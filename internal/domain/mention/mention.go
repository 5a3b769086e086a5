// Package mention finds @-mentions in comment text and resolves them to
// project participants.
package mention

import (
	"context"
	"regexp"
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
)

// pattern matches "@user@example.com" or "@username".
var pattern = regexp.MustCompile(`@([\w.-]+@[\w.-]+\.\w+)|@(\w+)`)

// Handle is one mention as written. Exactly one field is set.
type Handle struct {
	Email string
	Name  string
}

// Extract returns mentions in order of appearance, without duplicates.
func Extract(text string) []Handle {
	var out []Handle
	seen := make(map[Handle]bool)
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		var h Handle
		if m[1] != "" {
			h.Email = strings.ToLower(m[1])
		} else {
			h.Name = strings.ToLower(m[2])
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// Directory looks users up by id and email.
type Directory interface {
	GetMany(ctx context.Context, ids []string) ([]*types.User, error)
	FindByEmail(ctx context.Context, email string) (*types.User, error)
}

// Resolver maps mentions to users.
type Resolver struct {
	users Directory
}

func NewResolver(users Directory) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the users mentioned in text, excluding authorID and
// deduplicated by id. Only the project's owner and collaborators can be
// mentioned: an email must belong to one of them, otherwise the handle is
// compared to their names ignoring case. Without a project nothing
// resolves. Unmatched handles are ignored.
func (r *Resolver) Resolve(ctx context.Context, project *types.Project, text, authorID string) ([]*types.User, error) {
	if project == nil {
		return nil, nil
	}
	handles := Extract(text)
	if len(handles) == 0 {
		return nil, nil
	}

	members, err := r.users.GetMany(ctx, append([]string{project.Owner}, project.Collaborators...))
	if err != nil {
		return nil, err
	}

	var out []*types.User
	seen := map[string]bool{authorID: true}
	add := func(u *types.User) {
		if u != nil && !seen[u.ID] {
			seen[u.ID] = true
			out = append(out, u)
		}
	}

	for _, h := range handles {
		if h.Email != "" {
			add(r.memberByEmail(ctx, members, h.Email))
			continue
		}
		add(byName(members, h.Name))
	}
	return out, nil
}

// memberByEmail looks the address up in the directory index and accepts it
// only when it belongs to a member.
func (r *Resolver) memberByEmail(ctx context.Context, members []*types.User, email string) *types.User {
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil
	}
	return byID(members, u.ID)
}

func byID(users []*types.User, id string) *types.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// byName matches the whole name or, for multi-word names, its first word.
func byName(users []*types.User, name string) *types.User {
	for _, u := range users {
		if strings.EqualFold(u.Name, name) {
			return u
		}
	}
	for _, u := range users {
		if first, _, ok := strings.Cut(u.Name, " "); ok && strings.EqualFold(first, name) {
			return u
		}
	}
	return nil
}
