package model

// AnswerOK is the status of an answered question.
const AnswerOK = "ok"

// Answer is the outcome of a question about a notice. Non-ok statuses carry
// an explanatory Message instead of Text.
type Answer struct {
	Status  string
	Text    string
	Sources []string // cited document titles
	Message string
}

// OK reports whether the question was answered.
func (a Answer) OK() bool {
	return a.Status == AnswerOK
}

// Exchange is one question/answer pair of a Q&A session.
type Exchange struct {
	Question string
	Answer   Answer
}
