package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/domain/model"
)

func TestCandidatesQuery(t *testing.T) {
	Convey("Given a candidate query", t, func() {
		since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		query, args, err := candidatesQuery(model.CandidateQuery{Since: since, MinScore: 0.6})

		Convey("Then it joins scores and filters with dollar placeholders", func() {
			So(err, ShouldBeNil)
			So(query, ShouldContainSubstring, "JOIN scores s ON s.paper_id = p.id")
			So(query, ShouldContainSubstring, "p.enriched = $1")
			So(query, ShouldContainSubstring, "p.published_at >= $2")
			So(query, ShouldContainSubstring, "s.final_score >= $3")
			So(query, ShouldEndWith, "ORDER BY s.final_score DESC, p.published_at DESC, p.id")
			So(args, ShouldResemble, []any{true, since, 0.6})
		})
	})
}

func TestSavePaperQuery(t *testing.T) {
	Convey("Given an enriched paper", t, func() {
		paper := model.Paper{
			ID:      "p1",
			Title:   "T",
			Authors: []model.Author{{Name: "Ada", Affiliation: "Lab"}},
			Enrichment: &model.Enrichment{
				Topics:    []string{"nlp"},
				Embedding: model.Embedding{0.1, 0.2},
				Evidence:  model.EvidenceFlags{Code: true},
			},
		}

		Convey("When building the upsert", func() {
			query, args, err := savePaperQuery(paper)

			Convey("Then it upserts on id and encodes nested fields", func() {
				So(err, ShouldBeNil)
				So(query, ShouldStartWith, "INSERT INTO papers")
				So(query, ShouldContainSubstring, "ON CONFLICT (id) DO UPDATE")
				So(args, ShouldHaveLength, 12)
				So(args[3], ShouldEqual, `[{"name":"Ada","affiliation":"Lab"}]`)
				So(args[5], ShouldEqual, string(model.StatusEnriched))
				So(args[6], ShouldEqual, true)
				So(args[7], ShouldResemble, pq.StringArray{"nlp"})
				So(args[9], ShouldResemble, pq.Float64Array{0.1, 0.2})
				So(args[11], ShouldContainSubstring, `"Code":true`)
			})
		})

		Convey("When the paper has no enrichment", func() {
			query, args, err := savePaperQuery(model.Paper{ID: "raw"})

			Convey("Then empty arrays are sent instead of NULL", func() {
				So(err, ShouldBeNil)
				So(query, ShouldNotBeEmpty)
				So(args[5], ShouldEqual, string(model.StatusFetched))
				So(args[6], ShouldEqual, false)
				So(args[7], ShouldResemble, pq.StringArray{})
				So(args[9], ShouldResemble, pq.Float64Array{})
			})
		})

		Convey("When the paper has no id", func() {
			_, _, err := savePaperQuery(model.Paper{})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, repository.ErrInvalidPaper), ShouldBeTrue)
			})
		})
	})
}

func TestUpsertScoreQuery(t *testing.T) {
	Convey("Given a score", t, func() {
		score := model.Score{
			PaperID:    "p1",
			FinalScore: 0.7,
			WhyShown:   model.WhyShown{model.SignalEvidence: 0.125},
		}

		Convey("When building the upsert", func() {
			query, args, err := upsertScoreQuery(score)

			Convey("Then it keeps one row per paper", func() {
				So(err, ShouldBeNil)
				So(query, ShouldContainSubstring, "ON CONFLICT (paper_id) DO UPDATE")
				So(args, ShouldHaveLength, 10)
				So(args[8], ShouldEqual, `{"evidence":0.125}`)
			})
		})
	})
}

func TestProfileUpsertQuery(t *testing.T) {
	Convey("Given a profile with a vector", t, func() {
		p := model.NewProfile("u1")
		p.InterestVector = model.Embedding{1, 0}

		Convey("A full save overwrites the vector on conflict", func() {
			query, args, err := profileUpsertQuery(&p, "interest_vector = EXCLUDED.interest_vector, "+profileSettingsUpdate)
			So(err, ShouldBeNil)
			So(query, ShouldContainSubstring, "interest_vector = EXCLUDED.interest_vector")
			So(args[1], ShouldResemble, pq.Float64Array{1, 0})
		})

		Convey("A settings save inserts the vector but never updates it", func() {
			query, args, err := profileUpsertQuery(&p, profileSettingsUpdate)
			So(err, ShouldBeNil)
			So(query, ShouldStartWith, "INSERT INTO user_profiles")
			So(query, ShouldContainSubstring, "ON CONFLICT (user_id) DO UPDATE SET include_topics")
			So(query, ShouldNotContainSubstring, "interest_vector = EXCLUDED")
			So(args[1], ShouldResemble, pq.Float64Array{1, 0})
		})

		Convey("A profile without a user id is rejected", func() {
			_, _, err := profileUpsertQuery(&model.UserProfile{}, profileSettingsUpdate)
			So(errors.Is(err, repository.ErrInvalidProfile), ShouldBeTrue)
		})
	})
}
