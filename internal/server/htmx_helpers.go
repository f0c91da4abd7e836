package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HTMX request/response helpers

// isHTMXRequest checks if the request was made by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// setHTMXTriggerWithData sets a client-side event with JSON data
func setHTMXTriggerWithData(w http.ResponseWriter, event string, data interface{}) error {
	payload := map[string]interface{}{
		event: data,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}
	w.Header().Set("HX-Trigger", string(jsonData))
	return nil
}

// setHTMXReswap changes the swap method for this response
func setHTMXReswap(w http.ResponseWriter, method string) {
	// Valid methods: innerHTML, outerHTML, beforebegin, afterbegin, beforeend, afterend, delete, none
	w.Header().Set("HX-Reswap", method)
}

// showToast is a helper to show a toast notification via HTMX trigger
func showToast(w http.ResponseWriter, message, level string) error {
	return setHTMXTriggerWithData(w, "showToast", map[string]string{
		"message": message,
		"level":   level, // success, info, warning, error
	})
}

// ToastLevel represents the toast notification level
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// ShowSuccessToast shows a success toast notification
func ShowSuccessToast(w http.ResponseWriter, message string) error {
	return showToast(w, message, string(ToastSuccess))
}

// ShowErrorToast shows an error toast notification
func ShowErrorToast(w http.ResponseWriter, message string) error {
	return showToast(w, message, string(ToastError))
}

// ShowWarningToast shows a warning toast notification
func ShowWarningToast(w http.ResponseWriter, message string) error {
	return showToast(w, message, string(ToastWarning))
}
