package exam

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/qazedu/examcenter/internal/model"
)

// FormatPercent renders correct/(correct+incorrect) as a percentage
// string with two decimals. A zero denominator yields "0%".
func FormatPercent(correct, incorrect int) string {
	total := correct + incorrect
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(correct)/float64(total)*100)
}

// optionSetsEqual reports exact set equality between the submitted and
// correct option ids: same cardinality, every submitted id correct.
// Partial matches earn nothing.
func optionSetsEqual(submitted, correct []int64) bool {
	want := make(map[int64]bool, len(correct))
	for _, id := range correct {
		want[id] = true
	}
	// Comparison is over the distinct ids so repeating a correct id
	// cannot pad out a partial answer.
	got := make(map[int64]bool, len(submitted))
	for _, id := range submitted {
		if !want[id] {
			return false
		}
		got[id] = true
	}
	return len(got) == len(want)
}

// questionLookup resolves a question id to its canonical record.
type questionLookup func(id int64) (*model.Question, error)

// gradeResult evaluates every ungraded answer of res in place and
// recomputes the derived aggregates, reporting whether any answer was
// newly graded. Answers with calculated set are never touched again,
// so repeated passes cannot double-count. A referenced question that
// no longer exists is skipped with a warning and stays ungraded.
func gradeResult(res *model.Result, lookup questionLookup) (bool, error) {
	changed := false
	for si := range res.Subjects {
		sr := &res.Subjects[si]
		for ai := range sr.Answers {
			ans := &sr.Answers[ai]
			if ans.Calculated {
				continue
			}
			q, err := lookup(ans.QuestionID)
			if err != nil {
				var notFound *model.NotFoundError
				if errors.As(err, &notFound) {
					slog.Warn("skipping answer for missing question",
						"result_id", res.ID, "question_id", ans.QuestionID, "question_number", ans.QuestionNumber)
					continue
				}
				return false, err
			}
			correct := optionSetsEqual(ans.OptionIDs, q.CorrectOptionIDs())
			ans.IsCorrect = &correct
			ans.Calculated = true
			changed = true
			if correct {
				sr.TotalCorrect++
				sr.TotalPoints += q.Point
			} else {
				sr.TotalIncorrect++
			}
		}
	}
	if changed {
		recomputeAggregates(res)
	}
	return changed, nil
}

// recomputeAggregates derives subject percents and the result-wide
// totals from the subject-level counters. The top-level fields are
// never mutated independently.
func recomputeAggregates(res *model.Result) {
	res.OverallScore = 0
	res.TotalCorrect = 0
	res.TotalIncorrect = 0
	for si := range res.Subjects {
		sr := &res.Subjects[si]
		sr.Percent = FormatPercent(sr.TotalCorrect, sr.TotalIncorrect)
		res.OverallScore += sr.TotalPoints
		res.TotalCorrect += sr.TotalCorrect
		res.TotalIncorrect += sr.TotalIncorrect
	}
	res.OverallPercent = FormatPercent(res.TotalCorrect, res.TotalIncorrect)
}

// GradeResult grades one result and persists it when grading changed
// anything. Used by the explicit submit-and-check operation.
func (s *Service) GradeResult(res *model.Result) error {
	changed, err := gradeResult(res, s.store.GetQuestion)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.store.SaveResult(res)
}

// gradeAll lazily grades the results of an exam, persisting only those
// with newly graded answers. Invoked on leaderboard reads so scores
// reflect all submissions; fully graded results pass through without a
// write, keeping concurrent reads from racing each other's versions.
func (s *Service) gradeAll(results []model.Result) error {
	for i := range results {
		changed, err := gradeResult(&results[i], s.store.GetQuestion)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		if err := s.store.SaveResult(&results[i]); err != nil {
			var conflict *model.ConflictError
			if !errors.As(err, &conflict) {
				return err
			}
			// A concurrent request graded this result first; its
			// stored copy is authoritative.
			stored, err := s.store.GetResultByID(results[i].ID)
			if err != nil {
				return err
			}
			results[i] = *stored
		}
	}
	return nil
}
