package runner

// State is a step of a release run.
type State int

const (
	Start State = iota
	BranchCheck
	TagResolve
	RemoteFreshnessCheck
	CommitScan
	Enrichment
	Render
	Confirm
	TagCommit
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case BranchCheck:
		return "branch-check"
	case TagResolve:
		return "tag-resolve"
	case RemoteFreshnessCheck:
		return "remote-freshness-check"
	case CommitScan:
		return "commit-scan"
	case Enrichment:
		return "enrichment"
	case Render:
		return "render"
	case Confirm:
		return "confirm"
	case TagCommit:
		return "tag-commit"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return "<UNKNOWN>"
	}
}
