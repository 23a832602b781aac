package exam

import (
	"sort"

	"github.com/qazedu/examcenter/internal/model"
)

const leaderboardSize = 10

// LeaderboardEntry is a ranked result with the student's identity
// redacted to display-name fields.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	OverallScore   int    `json:"overall_score"`
	OverallPercent string `json:"overall_percent"`
}

// RankedResult pairs a full result with its 1-based rank.
type RankedResult struct {
	Rank   int          `json:"rank"`
	Result model.Result `json:"result"`
}

// ExamReport is the leaderboard view for a whole exam.
type ExamReport struct {
	Top10      []LeaderboardEntry `json:"top10"`
	AllResults []RankedResult     `json:"all_results"`
}

// StudentReport is the leaderboard view centered on one student.
type StudentReport struct {
	Top10         []LeaderboardEntry `json:"top10"`
	StudentResult model.Result       `json:"student_result"`
	StudentRank   int                `json:"student_rank"`
}

// ReportFilter narrows an exam report to one subject (matched by
// either-locale display name) and/or one class's students.
type ReportFilter struct {
	SubjectID *int64
	ClassID   *int64
}

// rankExamResults loads, lazily grades, filters, and sorts all results
// of an exam. Sort order: overall score descending, then result
// creation time ascending (earlier start wins ties), then id.
func (s *Service) rankExamResults(examID int64, filter ReportFilter) ([]model.Result, error) {
	results, err := s.store.ListResultsForExam(examID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, model.NewNotFound("result")
	}
	if err := s.gradeAll(results); err != nil {
		return nil, err
	}

	if filter.SubjectID != nil {
		subject, err := s.store.GetSubject(*filter.SubjectID)
		if err != nil {
			return nil, err
		}
		var kept []model.Result
		for _, r := range results {
			for _, name := range subject.Names {
				if name != "" && r.FindSubject(name) != nil {
					kept = append(kept, r)
					break
				}
			}
		}
		results = kept
	}
	if filter.ClassID != nil {
		studentIDs, err := s.store.ListClassStudentIDs(*filter.ClassID)
		if err != nil {
			return nil, err
		}
		members := make(map[int64]bool, len(studentIDs))
		for _, id := range studentIDs {
			members[id] = true
		}
		var kept []model.Result
		for _, r := range results {
			if members[r.StudentID] {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if len(results) == 0 {
		return nil, model.NewNotFound("result")
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// topN reduces the head of a ranked result list to leaderboard entries.
func (s *Service) topN(results []model.Result, n int) ([]LeaderboardEntry, error) {
	if len(results) < n {
		n = len(results)
	}
	var entries []LeaderboardEntry
	for i, r := range results[:n] {
		entry := LeaderboardEntry{
			Rank:           i + 1,
			OverallScore:   r.OverallScore,
			OverallPercent: r.OverallPercent,
		}
		user, err := s.store.GetUserByID(r.StudentID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			entry.Name = user.FirstName
			entry.Surname = user.LastName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ExamResults produces the full ranked report for an exam.
func (s *Service) ExamResults(examID int64, filter ReportFilter) (*ExamReport, error) {
	results, err := s.rankExamResults(examID, filter)
	if err != nil {
		return nil, err
	}
	top, err := s.topN(results, leaderboardSize)
	if err != nil {
		return nil, err
	}
	report := &ExamReport{Top10: top}
	for i, r := range results {
		report.AllResults = append(report.AllResults, RankedResult{Rank: i + 1, Result: r})
	}
	return report, nil
}

// StudentResult produces the leaderboard plus one student's own result
// and rank. A missing student result is reported distinctly from an
// exam with no results at all.
func (s *Service) StudentResult(examID, studentID int64) (*StudentReport, error) {
	results, err := s.rankExamResults(examID, ReportFilter{})
	if err != nil {
		return nil, err
	}
	top, err := s.topN(results, leaderboardSize)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		if r.StudentID == studentID {
			return &StudentReport{
				Top10:         top,
				StudentResult: r,
				StudentRank:   i + 1,
			}, nil
		}
	}
	return nil, model.NewNotFound("student result")
}

// StudentResultSummary is one row of a student's exam history.
type StudentResultSummary struct {
	ID            int64  `json:"_id"`
	ExamID        int64  `json:"examId"`
	StudentID     int64  `json:"studentId"`
	StartedAt     string `json:"startedAt"`
	OverallPoints int    `json:"overallPoints"`
}

// StudentHistory lists every exam result of one student, newest first.
func (s *Service) StudentHistory(studentID int64) ([]StudentResultSummary, error) {
	results, err := s.store.ListResultsForStudent(studentID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, model.NewNotFound("result")
	}
	var summaries []StudentResultSummary
	for _, r := range results {
		summary := StudentResultSummary{
			ID:            r.ID,
			ExamID:        r.ExamID,
			StudentID:     r.StudentID,
			OverallPoints: r.OverallScore,
		}
		ex, err := s.store.GetExam(r.ExamID)
		if err == nil {
			summary.StartedAt = ex.StartedAt.Format("2006-01-02 15:04")
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
