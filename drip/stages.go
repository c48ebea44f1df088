package drip

// StageConfig describes one step of the drip sequence: which email
// template goes out and how long until the next stage is due.
type StageConfig struct {
	Stage         int
	EmailType     string
	DaysUntilNext int
	Final         bool
}

// FinalStage is the last stage of the sequence. An enrollment due at
// or past it with no conversion is completed without another send.
const FinalStage = 3

// stageTable is the fixed sequence configuration.
var stageTable = []StageConfig{
	{Stage: 1, EmailType: "intro", DaysUntilNext: 2},
	{Stage: 2, EmailType: "refund_amounts", DaysUntilNext: 3},
	{Stage: 3, EmailType: "urgency", Final: true},
}

// StageByNumber looks up the config for a stage number.
func StageByNumber(n int) (StageConfig, bool) {
	for _, cfg := range stageTable {
		if cfg.Stage == n {
			return cfg, true
		}
	}
	return StageConfig{}, false
}
