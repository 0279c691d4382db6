package scoring_test

import (
	"errors"
	"testing"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestEvidence(t *testing.T) {
	Convey("Given evidence flags", t, func() {
		Convey("When every flag is set", func() {
			f := model.EvidenceFlags{Baselines: true, Ablations: true, Code: true, Data: true, MultipleEvals: true}

			Convey("Then the score is 1", func() {
				So(scoring.Evidence(f), ShouldAlmostEqual, 1.0, eps)
			})
		})

		Convey("When no flag is set", func() {
			Convey("Then the score is 0", func() {
				So(scoring.Evidence(model.EvidenceFlags{}), ShouldEqual, 0.0)
			})
		})

		Convey("When only baselines and code are set", func() {
			f := model.EvidenceFlags{Baselines: true, Code: true}

			Convey("Then the score is 0.5", func() {
				So(scoring.Evidence(f), ShouldAlmostEqual, 0.5, eps)
			})
		})
	})
}

func TestPersonalFit(t *testing.T) {
	Convey("Given a paper and a user vector", t, func() {
		paper := model.Embedding{1, 0}
		user := model.Embedding{1, 0}

		Convey("When vectors are identical and no rules match", func() {
			fit, err := scoring.PersonalFit(paper, user, nil, "some text", nil, nil)

			Convey("Then only the similarity term contributes", func() {
				So(err, ShouldBeNil)
				So(fit, ShouldAlmostEqual, 0.7, eps)
			})
		})

		Convey("When a topic and a keyword match case-insensitively", func() {
			fit, err := scoring.PersonalFit(paper, user,
				[]string{"Reinforcement Learning"}, "Sparse Attention for long contexts",
				[]string{"reinforcement learning"}, []string{"attention"})

			Convey("Then the rule bonus adds 0.3 x 0.3", func() {
				So(err, ShouldBeNil)
				So(fit, ShouldAlmostEqual, 0.7+0.3*0.3, eps)
			})
		})

		Convey("When many rules match", func() {
			topics := []string{"a", "b", "c", "d", "e", "f"}
			fit, err := scoring.PersonalFit(paper, user, topics, "", topics, nil)

			Convey("Then the rule bonus is capped at 1", func() {
				So(err, ShouldBeNil)
				So(fit, ShouldAlmostEqual, 1.0, eps)
			})
		})

		Convey("When the user has no interest vector yet", func() {
			fit, err := scoring.PersonalFit(paper, nil, nil, "", nil, nil)

			Convey("Then similarity falls back to 0", func() {
				So(err, ShouldBeNil)
				So(fit, ShouldEqual, 0.0)
			})
		})

		Convey("When dimensions differ", func() {
			_, err := scoring.PersonalFit(paper, model.Embedding{1, 0, 0}, nil, "", nil, nil)

			Convey("Then a length mismatch is reported", func() {
				So(errors.Is(err, model.ErrLengthMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestNovelty(t *testing.T) {
	Convey("Given a paper", t, func() {
		emb := model.Embedding{0, 1}

		Convey("When the user has no history", func() {
			n, err := scoring.Novelty(emb, "anything at all", model.UserHistory{})

			Convey("Then everything is novel", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1.0)
			})
		})

		Convey("When the paper matches the centroid and every token is known", func() {
			h := model.UserHistory{Centroid: model.Embedding{0, 2}, Keywords: []string{"Machine Learning"}}
			n, err := scoring.Novelty(emb, "machine learning", h)

			Convey("Then novelty is 0", func() {
				So(err, ShouldBeNil)
				So(n, ShouldAlmostEqual, 0.0, eps)
			})
		})

		Convey("When half the tokens are unknown and the paper is orthogonal", func() {
			h := model.UserHistory{Centroid: model.Embedding{1, 0}, Keywords: []string{"graph"}}
			n, err := scoring.Novelty(emb, "graph diffusion", h)

			Convey("Then both terms contribute", func() {
				So(err, ShouldBeNil)
				// normalized cosine of orthogonal vectors is 0.5
				So(n, ShouldAlmostEqual, 0.5*0.5+0.5*0.5, eps)
			})
		})

		Convey("When the text has no tokens", func() {
			h := model.UserHistory{Centroid: model.Embedding{0, 1}, Keywords: []string{"x"}}
			n, err := scoring.Novelty(emb, "   ", h)

			Convey("Then keyword novelty counts as full", func() {
				So(err, ShouldBeNil)
				So(n, ShouldAlmostEqual, 0.5, eps)
			})
		})
	})
}

func TestLabPriorAndMathPenalty(t *testing.T) {
	Convey("Given authors with affiliations", t, func() {
		authors := []model.Author{
			{Name: "A", Affiliation: ""},
			{Name: "B", Affiliation: "Google DeepMind, London"},
		}

		Convey("Then a boosted lab matches case-insensitively", func() {
			So(scoring.LabPrior(authors, []string{"deepmind"}), ShouldEqual, 1.0)
		})

		Convey("Then an unrelated lab does not match", func() {
			So(scoring.LabPrior(authors, []string{"FAIR"}), ShouldEqual, 0.0)
			So(scoring.LabPrior(authors, nil), ShouldEqual, 0.0)
		})
	})

	Convey("Given math depth and sensitivity", t, func() {
		So(scoring.MathPenalty(0.5, 0.5), ShouldAlmostEqual, 0.25, eps)
		So(scoring.MathPenalty(1, 3), ShouldEqual, 1.0)
		So(scoring.MathPenalty(0.5, -1), ShouldEqual, 0.0)
	})
}

func TestFuse(t *testing.T) {
	Convey("Given all signals at their maximum", t, func() {
		s := scoring.Signals{Novelty: 1, Evidence: 1, Velocity: 1, PersonalFit: 1, LabPrior: 1, MathPenalty: 0}
		final, why := scoring.Fuse(s, scoring.DefaultWeights())

		Convey("Then the final score is the sum of positive weights", func() {
			So(final, ShouldAlmostEqual, 0.95, eps)
			So(why, ShouldHaveLength, len(model.Signals))
			So(why[model.SignalPersonalFit], ShouldAlmostEqual, 0.30, eps)
		})
	})

	Convey("Given weights that overshoot", t, func() {
		w := scoring.Weights{Novelty: 1, Evidence: 1}
		final, _ := scoring.Fuse(scoring.Signals{Novelty: 1, Evidence: 1}, w)

		Convey("Then the final score is clamped to 1", func() {
			So(final, ShouldEqual, 1.0)
		})
	})

	Convey("Given only a math penalty", t, func() {
		final, why := scoring.Fuse(scoring.Signals{MathPenalty: 1}, scoring.DefaultWeights())

		Convey("Then the final score is clamped to 0 and the contribution is negative", func() {
			So(final, ShouldEqual, 0.0)
			So(why[model.SignalMathPenalty], ShouldAlmostEqual, -0.05, eps)
		})
	})

	Convey("Given mixed signals", t, func() {
		s := scoring.Signals{Novelty: 0.5, Evidence: 0.5, PersonalFit: 0.5, MathPenalty: 0.2}
		final, why := scoring.Fuse(s, scoring.DefaultWeights())

		Convey("Then the final score equals the sum of contributions", func() {
			var sum float64
			for _, v := range why {
				sum += v
			}
			So(final, ShouldAlmostEqual, sum, eps)
			So(final, ShouldAlmostEqual, 0.1+0.125+0.15-0.01, eps)
		})
	})
}

func TestScorer(t *testing.T) {
	Convey("Given a scorer", t, func() {
		profile := &model.UserProfile{
			UserID:          "u1",
			InterestVector:  model.Embedding{1, 0},
			MathSensitivity: 0.5,
			LabBoosts:       map[string]float64{"deepmind": 1},
		}
		paper := &model.Paper{
			ID:      "p1",
			Title:   "Title",
			Authors: []model.Author{{Name: "A", Affiliation: "DeepMind"}},
			Enrichment: &model.Enrichment{
				Embedding: model.Embedding{1, 0},
				MathDepth: 0.4,
				Evidence:  model.EvidenceFlags{Baselines: true, Code: true},
			},
		}

		Convey("When scoring an enriched paper with defaults", func() {
			s := scoring.NewScorer()
			score, err := s.Score(paper, profile, model.UserHistory{})

			Convey("Then every signal is populated", func() {
				So(err, ShouldBeNil)
				So(score.PaperID, ShouldEqual, "p1")
				So(score.Novelty, ShouldEqual, 1.0)
				So(score.Evidence, ShouldAlmostEqual, 0.5, eps)
				So(score.Velocity, ShouldEqual, 0.0)
				So(score.PersonalFit, ShouldAlmostEqual, 0.7, eps)
				So(score.LabPrior, ShouldEqual, 1.0)
				So(score.MathPenalty, ShouldAlmostEqual, 0.2, eps)
				So(score.FinalScore, ShouldAlmostEqual, 0.2+0.125+0.21+0.1-0.01, eps)
				So(score.WhyShown[model.SignalLabPrior], ShouldAlmostEqual, 0.1, eps)
			})
		})

		Convey("When a velocity signal is plugged in", func() {
			s := scoring.NewScorer(scoring.WithVelocitySignal(scoring.VelocityFunc(func(model.Paper) float64 {
				return 7
			})))
			score, err := s.Score(paper, profile, model.UserHistory{})

			Convey("Then its output is clamped to 1", func() {
				So(err, ShouldBeNil)
				So(score.Velocity, ShouldEqual, 1.0)
			})
		})

		Convey("When custom weights are used", func() {
			s := scoring.NewScorer(scoring.WithWeights(scoring.Weights{Evidence: 1}))
			score, err := s.Score(paper, profile, model.UserHistory{})

			Convey("Then only evidence counts", func() {
				So(err, ShouldBeNil)
				So(score.FinalScore, ShouldAlmostEqual, 0.5, eps)
			})
		})

		Convey("When the paper is not enriched", func() {
			_, err := scoring.NewScorer().Score(&model.Paper{ID: "raw"}, profile, model.UserHistory{})

			Convey("Then ErrNotEnriched is returned", func() {
				So(errors.Is(err, model.ErrNotEnriched), ShouldBeTrue)
			})
		})

		Convey("When dimensions disagree", func() {
			bad := *profile
			bad.InterestVector = model.Embedding{1, 0, 0}
			_, err := scoring.NewScorer().Score(paper, &bad, model.UserHistory{})

			Convey("Then ErrLengthMismatch is returned", func() {
				So(errors.Is(err, model.ErrLengthMismatch), ShouldBeTrue)
			})
		})
	})
}
