//go:build frida

package agent

/*
 #include <stdlib.h>
 #include "frida-core.h"

 void cgo_on_detached(FridaSession *session, FridaSessionDetachReason reason, FridaCrash *crash, gpointer user_data);
 void cgo_on_message(FridaScript *script, const gchar *message, GBytes *data, gpointer user_data);
 void cgo_on_spawn_added(FridaDevice *device, FridaSpawn *spawn, gpointer user_data);
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	glog "github.com/zboralski/cryptotap/internal/log"
)

const deviceTimeout = 5000 // ms

// driver is the state of the single running Frida session. Callbacks arrive
// on the GLib main loop and find it through active.
type driver struct {
	mu        sync.Mutex
	target    Target
	device    *C.FridaDevice
	source    *C.gchar
	loop      *C.GMainLoop
	onMessage MessageFunc
	sessions  map[*C.FridaSession]*C.FridaScript
	log       *glog.Logger
}

var (
	activeMu sync.Mutex
	active   *driver
)

func current() *driver {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}

func cstr(s string) *C.gchar {
	return (*C.gchar)(unsafe.Pointer(C.CString(s)))
}

func free(p *C.gchar) {
	C.free(unsafe.Pointer(p))
}

func gerror(op string, e *C.GError) error {
	defer C.g_error_free(e)
	return fmt.Errorf("%s: %s", op, C.GoString((*C.char)(unsafe.Pointer(e.message))))
}

func connect(instance C.gpointer, signal string, cb C.GCallback) {
	name := cstr(signal)
	defer free(name)
	C.g_signal_connect_data(instance, name, cb, nil, nil, 0)
}

// Run loads script into the target and streams its messages to onMessage
// until ctx is done or every instrumented process has gone away.
func Run(ctx context.Context, t Target, script string, onMessage MessageFunc) error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("frida: target name is empty")
	}

	d := &driver{
		target:    t,
		onMessage: onMessage,
		sessions:  make(map[*C.FridaSession]*C.FridaScript),
		log:       glog.Get(),
	}
	activeMu.Lock()
	if active != nil {
		activeMu.Unlock()
		return errors.New("frida: a session is already running")
	}
	active = d
	activeMu.Unlock()
	defer func() {
		activeMu.Lock()
		active = nil
		activeMu.Unlock()
	}()

	C.frida_init()
	defer C.frida_deinit()

	d.loop = C.g_main_loop_new(nil, C.gboolean(1))
	defer C.g_main_loop_unref(d.loop)

	manager := C.frida_device_manager_new()
	defer func() {
		C.frida_device_manager_close_sync(manager, nil, nil)
		C.frida_unref(C.gpointer(manager))
	}()

	if err := d.open(manager); err != nil {
		return err
	}
	defer C.frida_unref(C.gpointer(d.device))

	d.source = cstr(script)
	defer free(d.source)
	defer d.teardown()

	if t.Children {
		var gErr *C.GError
		C.frida_device_enable_spawn_gating_sync(d.device, nil, &gErr)
		if gErr != nil {
			return gerror("enable spawn gating", gErr)
		}
		connect(C.gpointer(d.device), "spawn-added", C.GCallback(C.cgo_on_spawn_added))
	}

	pid, err := d.locate()
	if err != nil {
		return err
	}
	if err := d.instrument(pid); err != nil {
		d.abandon(pid)
		return err
	}
	if t.Spawn {
		if err := d.resume(pid); err != nil {
			d.abandon(pid)
			return err
		}
	}

	stop := watchLoop(ctx, func() { C.g_main_loop_quit(d.loop) })
	if C.g_main_loop_is_running(d.loop) != 0 {
		C.g_main_loop_run(d.loop)
	}
	stop()
	return ctx.Err()
}

func (d *driver) open(manager *C.FridaDeviceManager) error {
	var gErr *C.GError
	switch d.target.Device {
	case "", "usb":
		d.device = C.frida_device_manager_get_device_by_type_sync(manager, C.FRIDA_DEVICE_TYPE_USB, deviceTimeout, nil, &gErr)
	case "local":
		d.device = C.frida_device_manager_get_device_by_type_sync(manager, C.FRIDA_DEVICE_TYPE_LOCAL, deviceTimeout, nil, &gErr)
	default:
		id := cstr(d.target.Device)
		defer free(id)
		d.device = C.frida_device_manager_get_device_by_id_sync(manager, id, deviceTimeout, nil, &gErr)
	}
	if gErr != nil {
		return gerror("open device "+d.target.Device, gErr)
	}
	if d.device == nil {
		return fmt.Errorf("frida: device %q not found", d.target.Device)
	}
	return nil
}

// locate spawns the target suspended or finds the running process.
func (d *driver) locate() (uint32, error) {
	name := cstr(d.target.Name)
	defer free(name)

	var gErr *C.GError
	if d.target.Spawn {
		pid := C.frida_device_spawn_sync(d.device, name, nil, nil, &gErr)
		if gErr != nil {
			return 0, gerror("spawn "+d.target.Name, gErr)
		}
		return uint32(pid), nil
	}

	proc := C.frida_device_get_process_by_name_sync(d.device, name, nil, nil, &gErr)
	if gErr != nil {
		return 0, gerror("find "+d.target.Name, gErr)
	}
	defer C.frida_unref(C.gpointer(proc))
	return uint32(C.frida_process_get_pid(proc)), nil
}

// instrument attaches to pid and loads the agent.
func (d *driver) instrument(pid uint32) error {
	var gErr *C.GError
	session := C.frida_device_attach_sync(d.device, C.guint(pid), nil, nil, &gErr)
	if gErr != nil {
		return gerror(fmt.Sprintf("attach %d", pid), gErr)
	}
	connect(C.gpointer(session), "detached", C.GCallback(C.cgo_on_detached))

	script := C.frida_session_create_script_sync(session, d.source, nil, nil, &gErr)
	if gErr != nil {
		C.frida_session_detach_sync(session, nil, nil)
		C.frida_unref(C.gpointer(session))
		return gerror("create script", gErr)
	}
	connect(C.gpointer(script), "message", C.GCallback(C.cgo_on_message))

	d.mu.Lock()
	d.sessions[session] = script
	d.mu.Unlock()

	C.frida_script_load_sync(script, nil, &gErr)
	if gErr != nil {
		return gerror("load script", gErr)
	}
	d.log.Info("instrumented", zap.Uint32("pid", pid), zap.String("target", d.target.Name))
	return nil
}

func (d *driver) resume(pid uint32) error {
	var gErr *C.GError
	C.frida_device_resume_sync(d.device, C.guint(pid), nil, &gErr)
	if gErr != nil {
		return gerror(fmt.Sprintf("resume %d", pid), gErr)
	}
	return nil
}

// abandon kills a process this run spawned and left suspended.
func (d *driver) abandon(pid uint32) {
	if !d.target.Spawn {
		return
	}
	d.teardown()
	C.frida_device_kill_sync(d.device, C.guint(pid), nil, nil)
}

func (d *driver) teardown() {
	d.mu.Lock()
	sessions := d.sessions
	d.sessions = make(map[*C.FridaSession]*C.FridaScript)
	d.mu.Unlock()

	for session, script := range sessions {
		C.frida_script_unload_sync(script, nil, nil)
		C.frida_unref(C.gpointer(script))
		C.frida_session_detach_sync(session, nil, nil)
		C.frida_unref(C.gpointer(session))
	}
}

//export onDetached
func onDetached(session *C.FridaSession, reason C.FridaSessionDetachReason, crash *C.FridaCrash, data C.gpointer) {
	d := current()
	if d == nil {
		return
	}
	d.mu.Lock()
	delete(d.sessions, session)
	idle := len(d.sessions) == 0
	d.mu.Unlock()

	d.log.Info("detached", zap.Int("reason", int(reason)))
	if idle {
		C.g_main_loop_quit(d.loop)
	}
}

//export onMessage
func onMessage(script *C.FridaScript, message *C.gchar, data *C.GBytes, userData C.gpointer) {
	d := current()
	if d == nil || d.onMessage == nil {
		return
	}
	d.onMessage([]byte(C.GoString((*C.char)(unsafe.Pointer(message)))))
}

//export onSpawnAdded
func onSpawnAdded(device *C.FridaDevice, spawn *C.FridaSpawn, data C.gpointer) {
	d := current()
	if d == nil {
		return
	}
	pid := uint32(C.frida_spawn_get_pid(spawn))
	identifier := C.GoString((*C.char)(unsafe.Pointer(C.frida_spawn_get_identifier(spawn))))

	// Frida calls are synchronous; keep them off the main loop.
	go func() {
		if d.target.child(identifier) {
			if err := d.instrument(pid); err != nil {
				d.log.Warn("instrument child", zap.Uint32("pid", pid), zap.String("identifier", identifier), zap.Error(err))
			}
		}
		if err := d.resume(pid); err != nil {
			d.log.Warn("resume child", zap.Uint32("pid", pid), zap.Error(err))
		}
	}()
}
