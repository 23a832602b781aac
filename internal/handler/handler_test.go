package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/qazedu/examcenter/internal/auth"
	"github.com/qazedu/examcenter/internal/exam"
	appI18n "github.com/qazedu/examcenter/internal/i18n"
	"github.com/qazedu/examcenter/internal/model"
	"github.com/qazedu/examcenter/internal/store"
)

type testAPI struct {
	store      *store.Store
	router     chi.Router
	token      string
	examID     int64
	subjectID  int64
	studentID  int64
	questionID int64
	optionID   int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	studentID, err := s.CreateUser(model.User{
		Username:     "student1",
		FirstName:    "Али",
		LastName:     "Касымов",
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
		Active:       true,
		Student:      &model.StudentProfile{},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	subjectID, err := s.CreateSubject(model.LocalizedText{
		model.LocaleKazakh:  "Физика",
		model.LocaleRussian: "Физика",
	})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	topicID, err := s.CreateTopic(subjectID, model.LocalizedText{
		model.LocaleKazakh:  "Механика",
		model.LocaleRussian: "Механика",
	})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	questionID, err := s.CreateQuestion(model.Question{
		TopicID: topicID,
		Locale:  model.LocaleKazakh,
		Text:    "F=ma?",
		Type:    model.QuestionOnePoint,
	}, []model.Option{{Text: "иә", Correct: true}, {Text: "жоқ"}})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	q, err := s.GetQuestion(questionID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}

	ex, err := s.CreateExam(model.ExamTypeLast,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour), []int64{subjectID})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	authSvc := auth.NewService(s, "test-secret", time.Minute, time.Hour)
	h := New(s, exam.NewService(s), authSvc)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)

	pair, err := authSvc.Login("student1", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	return &testAPI{
		store:      s,
		router:     r,
		token:      pair.AccessToken,
		examID:     ex.ID,
		subjectID:  subjectID,
		studentID:  studentID,
		questionID: questionID,
		optionID:   q.Options[0].ID,
	}
}

func (api *testAPI) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRoutesRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/startExam", map[string]any{}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated startExam = %d, want 401", rec.Code)
	}
}

func TestStartExamEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/startExam", map[string]any{
		"examId":             api.examID,
		"selectedSubjectIds": []int64{api.subjectID},
		"studentId":          api.studentID,
		"language":           "kz",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("startExam = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["resultId"] == nil {
		t.Error("response missing resultId")
	}
	if body["questionsBySubject"] == nil {
		t.Error("response missing questionsBySubject")
	}

	// Duplicate start is a conflict and must not create a second result.
	rec = api.do(t, http.MethodPost, "/startExam", map[string]any{
		"examId":             api.examID,
		"selectedSubjectIds": []int64{api.subjectID},
		"studentId":          api.studentID,
		"language":           "kz",
	}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate startExam = %d, want 409", rec.Code)
	}
}

func TestSubmitAnswersValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/submitOrUpdateAnswer", map[string]any{
		"answers": []any{},
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty answers = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Answers are required" {
		t.Errorf("message = %q, want 'Answers are required'", body["message"])
	}

	// Repeating an option id must not slip past validation.
	rec = api.do(t, http.MethodPost, "/submitOrUpdateAnswer", map[string]any{
		"answers": []map[string]any{{
			"examId":         api.examID,
			"studentId":      api.studentID,
			"subjectId":      api.subjectID,
			"questionId":     api.questionID,
			"optionIds":      []int64{api.optionID, api.optionID},
			"questionNumber": 1,
			"language":       "kz",
		}},
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicated option ids = %d, want 400", rec.Code)
	}
}

func TestSubmitAnswersUnknownQuestion(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/submitOrUpdateAnswer", map[string]any{
		"answers": []map[string]any{{
			"examId":         api.examID,
			"studentId":      api.studentID,
			"subjectId":      api.subjectID,
			"questionId":     99999,
			"optionIds":      []int64{1},
			"questionNumber": 1,
			"language":       "kz",
		}},
	}, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown question = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Question not found" {
		t.Errorf("message = %q, want 'Question not found'", body["message"])
	}
}

func TestGetResultNotFound(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/getResult", map[string]any{
		"examId":    api.examID,
		"studentId": api.studentID,
	}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("getResult with no results = %d, want 404", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/login", map[string]any{
		"username": "student1",
		"password": "pw",
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["accessToken"] == "" || body["refreshToken"] == "" {
		t.Error("login response missing tokens")
	}

	rec = api.do(t, http.MethodPost, "/auth/login", map[string]any{
		"username": "student1",
		"password": "nope",
	}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}
}

func TestQuestionCRUDEndpoints(t *testing.T) {
	api := newTestAPI(t)

	topicRec := api.do(t, http.MethodPost, "/topics", map[string]any{
		"subjectId": api.subjectID,
		"titles":    map[string]string{"kz": "Оптика", "ru": "Оптика"},
	}, true)
	if topicRec.Code != http.StatusCreated {
		t.Fatalf("create topic = %d, body %s", topicRec.Code, topicRec.Body.String())
	}
	topicID := int64(decodeBody(t, topicRec)["id"].(float64))

	rec := api.do(t, http.MethodPost, "/questions", map[string]any{
		"topicId":  topicID,
		"language": "ru",
		"text":     "Скорость света?",
		"type":     "onePoint",
		"options": []map[string]any{
			{"text": "3e8 м/с", "correct": true},
			{"text": "3e6 м/с"},
		},
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create question = %d, body %s", rec.Code, rec.Body.String())
	}

	// Violating the correct-option invariant is a 400.
	rec = api.do(t, http.MethodPost, "/questions", map[string]any{
		"topicId":  topicID,
		"language": "ru",
		"text":     "broken",
		"type":     "twoPoints",
		"options": []map[string]any{
			{"text": "A", "correct": true},
			{"text": "B"},
		},
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid question = %d, want 400", rec.Code)
	}
}
