// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libvitara.so (Android) / vitara.framework (iOS).
// All exported functions use C calling convention and can be called from
// Dart FFI. Returned strings must be freed with FreeString.
package main

/*
#cgo CFLAGS: -Wall -Wextra
#cgo LDFLAGS: -shared
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"unsafe"

	"github.com/bestlist/vitara-core/internal/cache"
	"github.com/bestlist/vitara-core/internal/core"
	"github.com/bestlist/vitara-core/internal/remote"
)

var (
	appMu   sync.Mutex
	app     *core.Core
	lastErr string
	lastMu  sync.RWMutex
)

//export Init
// Init initializes the client core. Safe to call once per process; later
// calls while initialized are no-ops. Returns 0 on success.
func Init(dataDir, userID, baseURL, apiKey, token *C.char) int32 {
	appMu.Lock()
	defer appMu.Unlock()

	if app != nil {
		return 0
	}

	client := remote.NewRESTClient(&remote.RESTConfig{
		BaseURL: C.GoString(baseURL),
		APIKey:  C.GoString(apiKey),
		Token:   C.GoString(token),
	})

	instance, err := core.New(core.Config{
		DataDir: C.GoString(dataDir),
		Backend: core.BackendSQLite,
		UserID:  C.GoString(userID),
	}, client)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to initialize core: %v", err))
		return 1
	}

	instance.Start()
	app = instance
	return 0
}

//export Cleanup
// Cleanup stops background tasks and closes storage.
func Cleanup() {
	appMu.Lock()
	defer appMu.Unlock()

	if app != nil {
		if err := app.Close(); err != nil {
			setLastError(fmt.Sprintf("Failed to close core: %v", err))
		}
		app = nil
	}
}

//export GetLastError
// GetLastError returns the last error message.
// Returns a C string that must be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()

	return C.CString(lastErr)
}

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

func getApp() *core.Core {
	appMu.Lock()
	defer appMu.Unlock()
	return app
}

// =====================================================
// Connectivity
// =====================================================

//export SetOnline
// SetOnline reports a connectivity transition from the host platform.
// Reconnecting with pending mutations triggers an automatic sync pass.
func SetOnline(online int32) {
	if a := getApp(); a != nil {
		a.Monitor().SetOnline(online != 0)
	}
}

//export SetAppActive
// SetAppActive reports a foreground/background transition from the host.
func SetAppActive(active int32) {
	if a := getApp(); a != nil {
		a.Monitor().SetAppActive(active != 0)
	}
}

// =====================================================
// Record Operations
// =====================================================

//export RecordCreate
// RecordCreate runs the optimistic write path: the placeholder is returned
// immediately, the mutation is queued and synced in the background.
// Returns JSON string that must be freed by the caller.
func RecordCreate(inputJSON *C.char) *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	var input core.RecordInput
	if err := json.Unmarshal([]byte(C.GoString(inputJSON)), &input); err != nil {
		setLastError(fmt.Sprintf("Invalid record input: %v", err))
		return nil
	}

	rec, err := a.CreateRecord(input)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to create record: %v", err))
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}

	return C.CString(string(data))
}

//export RecordDelete
// RecordDelete removes a record locally and queues the remote deletion.
// Returns 0 on success, non-zero on error.
func RecordDelete(id *C.char) int32 {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return 1
	}

	if err := a.DeleteRecord(C.GoString(id)); err != nil {
		setLastError(fmt.Sprintf("Failed to delete record: %v", err))
		return 1
	}
	return 0
}

// =====================================================
// Cache Reads
// =====================================================

//export DomainRead
// DomainRead serves a cache domain with stale-while-revalidate semantics.
// A warm domain returns instantly; pass revalidate=1 to refresh page 0 in
// the background. Returns JSON (possibly "null" when cold and offline) that
// must be freed by the caller.
func DomainRead(domain *C.char, revalidate int32) *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	entry, err := a.Caches().Domain(C.GoString(domain)).Read(context.Background(),
		cache.ReadOptions{Revalidate: revalidate != 0})
	if err != nil {
		setLastError(fmt.Sprintf("Failed to read domain: %v", err))
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export DomainLoadMore
// DomainLoadMore fetches the next page for a cache domain and returns the
// merged entry. Returns JSON string that must be freed by the caller.
func DomainLoadMore(domain *C.char) *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	entry, err := a.Caches().Domain(C.GoString(domain)).LoadMore(context.Background())
	if err != nil {
		setLastError(fmt.Sprintf("Failed to load more: %v", err))
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

// =====================================================
// Sync Operations
// =====================================================

//export SyncNow
// SyncNow triggers a manual sync pass and returns its result.
// Returns JSON string that must be freed by the caller.
func SyncNow() *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	result, err := a.SyncNow(context.Background())
	if err != nil {
		setLastError(fmt.Sprintf("Sync failed: %v", err))
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export QueueStatus
// QueueStatus returns the pending queue snapshot for the UI.
// Returns JSON string that must be freed by the caller.
func QueueStatus() *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	data, err := a.Engine().MarshalStatus()
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(data)
}

// =====================================================
// Image Cache
// =====================================================

//export ImageLocalURL
// ImageLocalURL returns the local file path for a remote image when cached,
// downloading it in the background otherwise. Returns a C string (possibly
// the remote URL unchanged) that must be freed by the caller.
func ImageLocalURL(remoteURL, userID *C.char) *C.char {
	a := getApp()
	if a == nil {
		setLastError("Core not initialized")
		return nil
	}

	url, _ := a.Images().LocalFirstURL(context.Background(), C.GoString(remoteURL), C.GoString(userID), nil)
	return C.CString(url)
}

// =====================================================
// Memory Management Helpers
// =====================================================

//export FreeString
// FreeString frees a string allocated by Go.
func FreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

func main() {
	// Main entry point for shared library.
	// Not used when loaded as library.
}
