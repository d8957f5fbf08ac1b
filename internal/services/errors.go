package services

import apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"

// Dashboard service errors. They alias the shared sentinels so handlers can
// match either name with errors.Is.
var (
	ErrSessionNotFound   = apierrors.ErrSessionNotFound
	ErrSessionLimit      = apierrors.ErrSessionLimit
	ErrUnsupportedFormat = apierrors.ErrUnsupportedFormat
	ErrUploadTooLarge    = apierrors.ErrUploadTooLarge
	ErrUnknownDimension  = apierrors.ErrUnknownDimension
	ErrInvalidNavigation = apierrors.ErrInvalidNavigation
)
