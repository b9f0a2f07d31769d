// Package tuning defines the immutable per-render settings value shared by
// every pipeline stage. A Settings value is fixed once a render starts; a
// changed value always derives a new cache namespace.
package tuning

// ModelClass describes how much markup a synthesis model understands.
type ModelClass string

const (
	// ModelClassFull accepts the full pacing/prosody markup subset.
	ModelClassFull ModelClass = "full"
	// ModelClassCue accepts break markup plus inline bracket cue tokens.
	ModelClassCue ModelClass = "cue"
	// ModelClassBare accepts plain text only; pacing comes from punctuation.
	ModelClassBare ModelClass = "bare"
)

// VoiceParams selects and shapes the synthesis voice.
type VoiceParams struct {
	ModelID        string     `yaml:"model_id" json:"model_id"`
	ModelClass     ModelClass `yaml:"model_class" json:"model_class"`
	VoiceID        string     `yaml:"voice_id" json:"voice_id"`
	Stability      float64    `yaml:"stability" json:"stability"`
	Similarity     float64    `yaml:"similarity" json:"similarity"`
	Style          float64    `yaml:"style" json:"style"`
	SpeakerBoost   bool       `yaml:"speaker_boost" json:"speaker_boost"`
	RateMultiplier float64    `yaml:"rate_multiplier" json:"rate_multiplier"`
}

// TimingTable maps punctuation classes to pause durations in milliseconds.
type TimingTable struct {
	CommaMS     int `yaml:"comma_ms" json:"comma_ms"`
	ClauseMS    int `yaml:"clause_ms" json:"clause_ms"`
	SentenceMS  int `yaml:"sentence_ms" json:"sentence_ms"`
	QuestionMS  int `yaml:"question_ms" json:"question_ms"`
	EllipsisMS  int `yaml:"ellipsis_ms" json:"ellipsis_ms"`
	ParagraphMS int `yaml:"paragraph_ms" json:"paragraph_ms"`
	MinFloorMS  int `yaml:"min_floor_ms" json:"min_floor_ms"`
	ModelMaxMS  int `yaml:"model_max_ms" json:"model_max_ms"`
}

// ChunkingParams bounds the semantic chunker.
type ChunkingParams struct {
	TargetSeconds    float64  `yaml:"target_seconds" json:"target_seconds"`
	MinChars         int      `yaml:"min_chars" json:"min_chars"`
	MaxChars         int      `yaml:"max_chars" json:"max_chars"`
	BaseWPM          float64  `yaml:"base_wpm" json:"base_wpm"`
	OverlapMS        int      `yaml:"overlap_ms" json:"overlap_ms"`
	ContextSentences int      `yaml:"context_sentences" json:"context_sentences"`
	TransitionCues   []string `yaml:"transition_cues" json:"transition_cues"`
}

// RealismParams governs the bounded-probability conversational transforms.
// Each ratio is in [0,1]; zero disables the transform entirely.
type RealismParams struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	AddressTermRatio float64  `yaml:"address_term_ratio" json:"address_term_ratio"`
	AddressTerms     []string `yaml:"address_terms" json:"address_terms"`
	EmphasisCaseProb float64  `yaml:"emphasis_case_prob" json:"emphasis_case_prob"`
	HesitationProb   float64  `yaml:"hesitation_prob" json:"hesitation_prob"`
	Hesitations      []string `yaml:"hesitations" json:"hesitations"`
	CombineProb      float64  `yaml:"combine_prob" json:"combine_prob"`
	VocabSubProb     float64  `yaml:"vocab_sub_prob" json:"vocab_sub_prob"`
	NegationDedup    bool     `yaml:"negation_dedup" json:"negation_dedup"`
}

// MarkupParams bounds macro insertion and overall tag density.
type MarkupParams struct {
	EnableEmphasis       bool    `yaml:"enable_emphasis" json:"enable_emphasis"`
	MaxEmphasisPerClause int     `yaml:"max_emphasis_per_clause" json:"max_emphasis_per_clause"`
	MaxTagsPer10Words    float64 `yaml:"max_tags_per_10_words" json:"max_tags_per_10_words"`
}

// CueParams governs optional emotional/ambient cue injection.
type CueParams struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	MaxPerChunk int      `yaml:"max_per_chunk" json:"max_per_chunk"`
	Palette     []string `yaml:"palette" json:"palette"`
}

// MasteringParams configures the post-synthesis audio chain. Each stage is
// independently toggleable.
type MasteringParams struct {
	HighpassEnabled   bool    `yaml:"highpass_enabled" json:"highpass_enabled"`
	HighpassHz        float64 `yaml:"highpass_hz" json:"highpass_hz"`
	DeesserEnabled    bool    `yaml:"deesser_enabled" json:"deesser_enabled"`
	DeesserLowHz      float64 `yaml:"deesser_low_hz" json:"deesser_low_hz"`
	DeesserHighHz     float64 `yaml:"deesser_high_hz" json:"deesser_high_hz"`
	DeesserAmountDB   float64 `yaml:"deesser_amount_db" json:"deesser_amount_db"`
	CompressorEnabled bool    `yaml:"compressor_enabled" json:"compressor_enabled"`
	CompThresholdDB   float64 `yaml:"comp_threshold_db" json:"comp_threshold_db"`
	CompRatio         float64 `yaml:"comp_ratio" json:"comp_ratio"`
	CompAttackMS      float64 `yaml:"comp_attack_ms" json:"comp_attack_ms"`
	CompReleaseMS     float64 `yaml:"comp_release_ms" json:"comp_release_ms"`
	CompMakeupDB      float64 `yaml:"comp_makeup_db" json:"comp_makeup_db"`
	LoudnessEnabled   bool    `yaml:"loudness_enabled" json:"loudness_enabled"`
	TargetLUFS        float64 `yaml:"target_lufs" json:"target_lufs"`
	TruePeakDB        float64 `yaml:"true_peak_db" json:"true_peak_db"`
	CrossfadeMS       int     `yaml:"crossfade_ms" json:"crossfade_ms"`
}

// ExportParams fixes the output audio format.
type ExportParams struct {
	SampleRate int    `yaml:"sample_rate" json:"sample_rate"`
	Channels   int    `yaml:"channels" json:"channels"`
	Format     string `yaml:"format" json:"format"`
}

// Settings is the complete immutable tuning value for one render.
type Settings struct {
	Voice     VoiceParams     `yaml:"voice" json:"voice"`
	Timing    TimingTable     `yaml:"timing" json:"timing"`
	Chunking  ChunkingParams  `yaml:"chunking" json:"chunking"`
	Realism   RealismParams   `yaml:"realism" json:"realism"`
	Markup    MarkupParams    `yaml:"markup" json:"markup"`
	Cues      CueParams       `yaml:"cues" json:"cues"`
	Mastering MasteringParams `yaml:"mastering" json:"mastering"`
	Export    ExportParams    `yaml:"export" json:"export"`
}

// Default returns the production defaults. Callers derive per-render values
// with the With* setters rather than mutating fields in place.
func Default() Settings {
	return Settings{
		Voice: VoiceParams{
			ModelID:        "vw-multiv2",
			ModelClass:     ModelClassFull,
			VoiceID:        "narrator-en-1",
			Stability:      0.55,
			Similarity:     0.80,
			Style:          0.15,
			SpeakerBoost:   true,
			RateMultiplier: 1.0,
		},
		Timing: TimingTable{
			CommaMS:     250,
			ClauseMS:    350,
			SentenceMS:  500,
			QuestionMS:  600,
			EllipsisMS:  800,
			ParagraphMS: 1000,
			MinFloorMS:  100,
			ModelMaxMS:  3000,
		},
		Chunking: ChunkingParams{
			TargetSeconds:    35,
			MinChars:         180,
			MaxChars:         1800,
			BaseWPM:          150,
			OverlapMS:        0,
			ContextSentences: 2,
			TransitionCues: []string{
				"meanwhile", "later that", "the next day", "years later",
				"back at", "suddenly", "chapter",
			},
		},
		Realism: RealismParams{
			Enabled:          false,
			AddressTermRatio: 0.08,
			AddressTerms:     []string{"you know", "listen", "friend"},
			EmphasisCaseProb: 0.05,
			HesitationProb:   0.04,
			Hesitations:      []string{"well,", "so,", "now,"},
			CombineProb:      0.10,
			VocabSubProb:     0.06,
			NegationDedup:    true,
		},
		Markup: MarkupParams{
			EnableEmphasis:       true,
			MaxEmphasisPerClause: 2,
			MaxTagsPer10Words:    6,
		},
		Cues: CueParams{
			Enabled:     false,
			MaxPerChunk: 2,
			Palette:     []string{"[warmly]", "[softly]", "[excited]", "[pause]"},
		},
		Mastering: MasteringParams{
			HighpassEnabled:   true,
			HighpassHz:        80,
			DeesserEnabled:    true,
			DeesserLowHz:      5000,
			DeesserHighHz:     9000,
			DeesserAmountDB:   4,
			CompressorEnabled: true,
			CompThresholdDB:   -18,
			CompRatio:         2.5,
			CompAttackMS:      8,
			CompReleaseMS:     120,
			CompMakeupDB:      3,
			LoudnessEnabled:   true,
			TargetLUFS:        -14,
			TruePeakDB:        -1.0,
			CrossfadeMS:       0,
		},
		Export: ExportParams{
			SampleRate: 44100,
			Channels:   1,
			Format:     "wav",
		},
	}
}

// WithVoice returns a copy with the voice selection replaced.
func (s Settings) WithVoice(modelID, voiceID string) Settings {
	s.Voice.ModelID = modelID
	s.Voice.VoiceID = voiceID
	return s
}

// WithStability returns a copy with the stability parameter replaced.
func (s Settings) WithStability(v float64) Settings {
	s.Voice.Stability = v
	return s
}

// WithTargetSeconds returns a copy with the chunk duration target replaced.
func (s Settings) WithTargetSeconds(v float64) Settings {
	s.Chunking.TargetSeconds = v
	return s
}

// WithTargetLUFS returns a copy with the loudness target replaced.
func (s Settings) WithTargetLUFS(v float64) Settings {
	s.Mastering.TargetLUFS = v
	return s
}
