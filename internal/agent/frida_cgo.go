//go:build frida

package agent

/*
 #cgo CFLAGS: -g -O2 -w
 #cgo LDFLAGS: -lfrida-core
 #cgo linux LDFLAGS: -ldl -lm -lrt -lresolv -lpthread -Wl,--export-dynamic
 #cgo darwin LDFLAGS: -framework Foundation -framework AppKit -lbsm -lresolv
 #include "frida-core.h"
 #include "_cgo_export.h"

 void cgo_on_detached(FridaSession *session, FridaSessionDetachReason reason, FridaCrash *crash, gpointer user_data) {
	onDetached(session, reason, crash, user_data);
 }
 void cgo_on_message(FridaScript *script, const gchar *message, GBytes *data, gpointer user_data) {
	onMessage(script, message, data, user_data);
 }
 void cgo_on_spawn_added(FridaDevice *device, FridaSpawn *spawn, gpointer user_data) {
	onSpawnAdded(device, spawn, user_data);
 }
*/
import "C"
