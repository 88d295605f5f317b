package commit

import (
	"regexp"
	"sort"

	"github.com/jeffrom/git-release/model"
)

// ExtractTickets returns every distinct match of re across the full message
// of each commit, in string order. The result is never nil.
func ExtractTickets(commits []*model.Commit, re *regexp.Regexp) []string {
	seen := make(map[string]bool)
	tickets := []string{}
	for _, c := range commits {
		for _, m := range re.FindAllString(c.Message(), -1) {
			if seen[m] {
				continue
			}
			seen[m] = true
			tickets = append(tickets, m)
		}
	}
	sort.Strings(tickets)
	return tickets
}

// LatestTag returns the tag pointing at the newest commit, breaking ties by
// name. It returns nil if there are no tags. Pass only tags reachable from
// HEAD, see vcs.Interface.MergedTags.
func LatestTag(tags []*model.Tag) *model.Tag {
	var latest *model.Tag
	for _, tag := range tags {
		if latest == nil || tag.Date.After(latest.Date) ||
			(tag.Date.Equal(latest.Date) && tag.Name > latest.Name) {
			latest = tag
		}
	}
	return latest
}
