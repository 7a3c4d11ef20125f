package application

import (
	"context"

	"sheepyard/contexts/scheduling/event-polls/ports"
)

// ResolveExternalIDs maps member ids to directory ids in input order,
// skipping members without a directory identity.
func ResolveExternalIDs(ctx context.Context, members ports.MemberRepository, memberIDs []string) ([]string, error) {
	if len(memberIDs) == 0 || members == nil {
		return nil, nil
	}
	found, err := members.ListMembersByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(found))
	for _, member := range found {
		if member.ExternalID != "" {
			byID[member.MemberID] = member.ExternalID
		}
	}
	seen := make(map[string]struct{}, len(memberIDs))
	out := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		external, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[external]; dup {
			continue
		}
		seen[external] = struct{}{}
		out = append(out, external)
	}
	return out, nil
}
