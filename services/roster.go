package services

import "strings"

// DefaultRosterCapacity is the roster size used when no policy overrides it.
const DefaultRosterCapacity = 10

// ValidateRoster checks a proposed match roster. A nil list is an empty roster.
// The result keeps submission order with ids in canonical (trimmed) form.
func ValidateRoster(candidateIDs []string, maxSize int) ([]string, error) {
	if len(candidateIDs) == 0 {
		return []string{}, nil
	}
	if len(candidateIDs) > maxSize {
		return nil, ErrRosterTooLarge
	}

	normalized := make([]string, 0, len(candidateIDs))
	seen := make(map[string]struct{}, len(candidateIDs))
	for _, raw := range candidateIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, ErrRosterBlankID
		}
		if _, dup := seen[id]; dup {
			return nil, ErrRosterDuplicate
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	return normalized, nil
}
