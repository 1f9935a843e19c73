package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session (JTI).
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// QuizScoringKey returns the cache key for a quiz's scoring key
// (question ids, correct answers, explanations).
func (r *CacheKeyStruct) QuizScoringKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:key", quizID)
}

// QuizAutosaveKey returns the cache key for a user's autosaved answers hash.
func (r *CacheKeyStruct) QuizAutosaveKey(quizID string, userID int) string {
	return fmt.Sprintf("user:%d:quiz:%s:answers", userID, quizID)
}

// UserActiveFocusRunKey returns the cache key marking a user's in-progress
// GMAT Focus run.
func (r *CacheKeyStruct) UserActiveFocusRunKey(userID int) string {
	return fmt.Sprintf("user:%d:active_focus_run", userID)
}

var CacheKey = NewCacheKeyStruct()
