package http

import "github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"

var errMissingID = apperr.Validation([]apperr.FieldError{{Field: "id", Message: "is required"}})
