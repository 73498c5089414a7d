package postgres

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid postgres backend config")
	ErrInvalidConnString   = errors.New("invalid postgres connection string")
	ErrPoolCreationFailed  = errors.New("failed to create connection pool")
	ErrTableCreationFailed = errors.New("failed to create withdrawguard table")
)

func NewInvalidConfigError(field string) error {
	return fmt.Errorf("%w: missing %s", ErrInvalidConfig, field)
}

func NewInvalidConnStringError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidConnString, err)
}

func NewPoolCreationFailedError(err error) error {
	return fmt.Errorf("%w: %w", ErrPoolCreationFailed, err)
}

func NewTableCreationFailedError(err error) error {
	return fmt.Errorf("%w: %w", ErrTableCreationFailed, err)
}

func NewGetFailedError(key string, err error) error {
	return fmt.Errorf("failed to get key '%s' from postgres: %w", key, err)
}

func NewSetFailedError(key string, err error) error {
	return fmt.Errorf("failed to set key '%s' in postgres: %w", key, err)
}

func NewDeleteFailedError(key string, err error) error {
	return fmt.Errorf("failed to delete key '%s' from postgres: %w", key, err)
}

func NewCheckAndSetFailedError(key string, err error) error {
	return fmt.Errorf("check-and-set operation failed for key '%s': %w", key, err)
}
