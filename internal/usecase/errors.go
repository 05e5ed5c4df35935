package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid conversion input")
	ErrTranscoder   = errors.New("transcoder error")
	ErrStorage      = errors.New("storage error")
	ErrRepository   = errors.New("repository error")
)

func wrapTranscoder(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTranscoder, err)
}

func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}
