package exam

import (
	"testing"

	"github.com/qazedu/examcenter/internal/model"
)

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		correct, incorrect int
		want               string
	}{
		{0, 0, "0%"},
		{3, 1, "75.00%"},
		{1, 2, "33.33%"},
		{5, 0, "100.00%"},
		{0, 4, "0.00%"},
	}
	for _, tc := range cases {
		if got := FormatPercent(tc.correct, tc.incorrect); got != tc.want {
			t.Errorf("FormatPercent(%d, %d) = %q, want %q", tc.correct, tc.incorrect, got, tc.want)
		}
	}
}

func TestOptionSetsEqual(t *testing.T) {
	cases := []struct {
		name               string
		submitted, correct []int64
		want               bool
	}{
		{"exact match", []int64{1, 2}, []int64{2, 1}, true},
		{"single match", []int64{5}, []int64{5}, true},
		{"subset", []int64{1}, []int64{1, 2}, false},
		{"superset", []int64{1, 2, 3}, []int64{1, 2}, false},
		{"disjoint", []int64{9}, []int64{5}, false},
		{"empty submitted", nil, []int64{1}, false},
		{"duplicated correct id is still partial", []int64{1, 1}, []int64{1, 2}, false},
		{"duplicated full set", []int64{1, 1, 2}, []int64{1, 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := optionSetsEqual(tc.submitted, tc.correct); got != tc.want {
				t.Errorf("optionSetsEqual(%v, %v) = %v, want %v", tc.submitted, tc.correct, got, tc.want)
			}
		})
	}
}

// lookupFromMap builds a questionLookup over a fixed question set;
// unknown ids behave like deleted questions.
func lookupFromMap(questions map[int64]model.Question) questionLookup {
	return func(id int64) (*model.Question, error) {
		q, ok := questions[id]
		if !ok {
			return nil, model.NewNotFound("question")
		}
		return &q, nil
	}
}

func testQuestions() map[int64]model.Question {
	return map[int64]model.Question{
		1: {
			ID: 1, Type: model.QuestionOnePoint, Point: 1,
			Options: []model.Option{{ID: 11, Correct: true}, {ID: 12}, {ID: 13}},
		},
		2: {
			ID: 2, Type: model.QuestionTwoPoints, Point: 2,
			Options: []model.Option{{ID: 21, Correct: true}, {ID: 22, Correct: true}, {ID: 23}},
		},
	}
}

func TestGradeResultScenarios(t *testing.T) {
	lookup := lookupFromMap(testQuestions())

	t.Run("onePoint correct then incorrect", func(t *testing.T) {
		res := &model.Result{Subjects: []model.SubjectResult{{
			SubjectName: "Математика",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 1, OptionIDs: []int64{11}},
			},
		}}}
		if _, err := gradeResult(res, lookup); err != nil {
			t.Fatalf("gradeResult: %v", err)
		}
		ans := res.Subjects[0].Answers[0]
		if ans.IsCorrect == nil || !*ans.IsCorrect {
			t.Error("correct single-option answer graded incorrect")
		}
		if res.Subjects[0].TotalPoints != 1 {
			t.Errorf("points = %d, want 1", res.Subjects[0].TotalPoints)
		}

		// A wrong resubmission on a fresh answer slot scores zero.
		res2 := &model.Result{Subjects: []model.SubjectResult{{
			SubjectName: "Математика",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 1, OptionIDs: []int64{12}},
			},
		}}}
		if _, err := gradeResult(res2, lookup); err != nil {
			t.Fatalf("gradeResult: %v", err)
		}
		if ans := res2.Subjects[0].Answers[0]; ans.IsCorrect == nil || *ans.IsCorrect {
			t.Error("wrong option graded correct")
		}
		if res2.Subjects[0].TotalPoints != 0 {
			t.Errorf("points = %d, want 0", res2.Subjects[0].TotalPoints)
		}
	})

	t.Run("twoPoints partial set earns nothing", func(t *testing.T) {
		res := &model.Result{Subjects: []model.SubjectResult{{
			SubjectName: "Тарих",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 2, OptionIDs: []int64{21}},
			},
		}}}
		if _, err := gradeResult(res, lookup); err != nil {
			t.Fatalf("gradeResult: %v", err)
		}
		ans := res.Subjects[0].Answers[0]
		if ans.IsCorrect == nil || *ans.IsCorrect {
			t.Error("partial option set graded correct")
		}
		if res.Subjects[0].TotalPoints != 0 {
			t.Errorf("points = %d, want 0 (no partial credit)", res.Subjects[0].TotalPoints)
		}
	})

	t.Run("twoPoints duplicated single option earns nothing", func(t *testing.T) {
		res := &model.Result{Subjects: []model.SubjectResult{{
			SubjectName: "Тарих",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 2, OptionIDs: []int64{21, 21}},
			},
		}}}
		if _, err := gradeResult(res, lookup); err != nil {
			t.Fatalf("gradeResult: %v", err)
		}
		ans := res.Subjects[0].Answers[0]
		if ans.IsCorrect == nil || *ans.IsCorrect {
			t.Error("repeated single option graded correct")
		}
		if res.Subjects[0].TotalPoints != 0 {
			t.Errorf("points = %d, want 0", res.Subjects[0].TotalPoints)
		}
	})

	t.Run("twoPoints full set earns two", func(t *testing.T) {
		res := &model.Result{Subjects: []model.SubjectResult{{
			SubjectName: "Тарих",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 2, OptionIDs: []int64{22, 21}},
			},
		}}}
		if _, err := gradeResult(res, lookup); err != nil {
			t.Fatalf("gradeResult: %v", err)
		}
		if res.Subjects[0].TotalPoints != 2 {
			t.Errorf("points = %d, want 2", res.Subjects[0].TotalPoints)
		}
	})
}

func TestGradeResultIdempotent(t *testing.T) {
	lookup := lookupFromMap(testQuestions())
	res := &model.Result{Subjects: []model.SubjectResult{{
		SubjectName: "Математика",
		Answers: []model.Answer{
			{QuestionNumber: 1, QuestionID: 1, OptionIDs: []int64{11}},
			{QuestionNumber: 2, QuestionID: 2, OptionIDs: []int64{21, 22}},
			{QuestionNumber: 3, QuestionID: 1, OptionIDs: []int64{13}},
		},
	}}}

	changed, err := gradeResult(res, lookup)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if !changed {
		t.Error("first pass reported no change")
	}
	first := *res
	firstSubjects := make([]model.SubjectResult, len(res.Subjects))
	copy(firstSubjects, res.Subjects)

	changed, err = gradeResult(res, lookup)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if changed {
		t.Error("second pass reported a change with nothing left to grade")
	}
	if res.OverallScore != first.OverallScore ||
		res.TotalCorrect != first.TotalCorrect ||
		res.TotalIncorrect != first.TotalIncorrect ||
		res.OverallPercent != first.OverallPercent {
		t.Errorf("second pass changed totals: %+v vs %+v", res, first)
	}
	for i := range res.Subjects {
		if res.Subjects[i].TotalPoints != firstSubjects[i].TotalPoints ||
			res.Subjects[i].TotalCorrect != firstSubjects[i].TotalCorrect ||
			res.Subjects[i].TotalIncorrect != firstSubjects[i].TotalIncorrect {
			t.Errorf("subject %d changed on regrade", i)
		}
	}
}

func TestGradeResultAggregates(t *testing.T) {
	lookup := lookupFromMap(testQuestions())
	res := &model.Result{Subjects: []model.SubjectResult{
		{
			SubjectName: "Математика",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 1, OptionIDs: []int64{11}},
				{QuestionNumber: 2, QuestionID: 2, OptionIDs: []int64{21, 22}},
			},
		},
		{
			SubjectName: "Тарих",
			Answers: []model.Answer{
				{QuestionNumber: 1, QuestionID: 1, OptionIDs: []int64{12}},
			},
		},
	}}
	if _, err := gradeResult(res, lookup); err != nil {
		t.Fatalf("gradeResult: %v", err)
	}

	wantScore, wantCorrect, wantIncorrect := 0, 0, 0
	for _, sr := range res.Subjects {
		wantScore += sr.TotalPoints
		wantCorrect += sr.TotalCorrect
		wantIncorrect += sr.TotalIncorrect
	}
	if res.OverallScore != wantScore {
		t.Errorf("overall score = %d, want sum of subjects %d", res.OverallScore, wantScore)
	}
	if res.TotalCorrect != wantCorrect || res.TotalIncorrect != wantIncorrect {
		t.Errorf("overall counts = %d/%d, want %d/%d",
			res.TotalCorrect, res.TotalIncorrect, wantCorrect, wantIncorrect)
	}
	if res.OverallScore != 3 {
		t.Errorf("overall score = %d, want 3 (1 + 2 points)", res.OverallScore)
	}
	if res.OverallPercent != "66.67%" {
		t.Errorf("overall percent = %q, want 66.67%%", res.OverallPercent)
	}
}

func TestGradeResultSkipsMissingQuestion(t *testing.T) {
	lookup := lookupFromMap(testQuestions())
	res := &model.Result{Subjects: []model.SubjectResult{{
		SubjectName: "Математика",
		Answers: []model.Answer{
			{QuestionNumber: 1, QuestionID: 999, OptionIDs: []int64{1}},
			{QuestionNumber: 2, QuestionID: 1, OptionIDs: []int64{11}},
		},
	}}}
	if _, err := gradeResult(res, lookup); err != nil {
		t.Fatalf("gradeResult: %v", err)
	}
	if res.Subjects[0].Answers[0].Calculated {
		t.Error("answer for missing question marked calculated")
	}
	if !res.Subjects[0].Answers[1].Calculated {
		t.Error("remaining answer not graded after skip")
	}
	if res.Subjects[0].TotalCorrect != 1 {
		t.Errorf("total correct = %d, want 1", res.Subjects[0].TotalCorrect)
	}
}
