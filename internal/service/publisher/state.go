package publisher

// State is a step of the publishing pipeline.
type State int

// Pipeline states in execution order, followed by the terminal ones.
const (
	StateValidating State = iota
	StateUploadingPrimary
	StateUploadingSecondary
	StateRenderingManifest
	StateUploadingManifest
	StateRenderingLandingPage
	StateUploadingLandingPage
	StatePublishingOutputs
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateValidating:           "validating",
	StateUploadingPrimary:     "uploading_primary",
	StateUploadingSecondary:   "uploading_secondary",
	StateRenderingManifest:    "rendering_manifest",
	StateUploadingManifest:    "uploading_manifest",
	StateRenderingLandingPage: "rendering_landing_page",
	StateUploadingLandingPage: "uploading_landing_page",
	StatePublishingOutputs:    "publishing_outputs",
	StateDone:                 "done",
	StateAborted:              "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
