package models

import "github.com/ternarybob/newscrawler/internal/apperrors"

func errValidation(msg string) error {
	return apperrors.New(apperrors.KindValidation, msg)
}
