package runner

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/jeffrom/git-release/model"
)

// Stats counts the commits of a release by author and by ticket.
type Stats struct {
	Commits int64
	Counts  map[string][]*statCount
}

func (s *Stats) Add(bucket, name string, n int64) {
	counts := s.Counts[bucket]
	count, found := s.findCount(name, counts)
	if !found {
		counts = append(counts, count)
	}
	count.Add(n)

	s.Counts[bucket] = counts
}

func (s *Stats) Count(bucket, name string) int64 {
	c, found := s.findCount(name, s.Counts[bucket])
	if !found {
		return 0
	}
	return c.n
}

func (s *Stats) findCount(name string, counts []*statCount) (*statCount, bool) {
	for _, c := range counts {
		if c.label == name {
			return c, true
		}
	}
	return &statCount{label: name}, false
}

func (s *Stats) sortedBuckets() []string {
	buckets := make([]string, 0, len(s.Counts))
	for name := range s.Counts {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)
	return buckets
}

type statCount struct {
	label string
	n     int64
}

func (c *statCount) Add(n int64) {
	c.n += n
}

func (s *Stats) TextSummary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d commits\n\n", s.Commits)

	for _, name := range s.sortedBuckets() {
		counts := s.Counts[name]
		sort.SliceStable(counts, func(i, j int) bool {
			if counts[i].n == counts[j].n {
				return counts[i].label < counts[j].label
			}
			return counts[i].n > counts[j].n
		})
		fmt.Fprintf(bw, "%s:\n", toTitle(name))
		for _, count := range counts {
			label := count.label
			if label == "" {
				label = "n/a"
			}
			fmt.Fprintf(bw, "  %20s\t\t%d\n", label, count.n)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// ReleaseStats counts commits by author and by referenced ticket. Commits
// without a ticket are counted under an empty label.
func ReleaseStats(commits []*model.Commit, re *regexp.Regexp) *Stats {
	stats := &Stats{
		Commits: int64(len(commits)),
		Counts:  make(map[string][]*statCount),
	}
	for _, c := range commits {
		stats.Add("author", c.Author, 1)

		seen := make(map[string]bool)
		for _, ticket := range re.FindAllString(c.Message(), -1) {
			if seen[ticket] {
				continue
			}
			seen[ticket] = true
			stats.Add("ticket", ticket, 1)
		}
		if len(seen) == 0 {
			stats.Add("ticket", "", 1)
		}
	}
	return stats
}

var nonAlphaRE = regexp.MustCompile(`[^A-Za-z]`)

func toTitle(s string) string {
	s = nonAlphaRE.ReplaceAllLiteralString(s, " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
