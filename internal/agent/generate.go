// Package agent drives interception inside a remote process. It renders a
// Frida agent script from catalog definitions, decodes the messages that
// script sends back, and replays each capture through the same catalog
// observers an in-process registry would use.
package agent

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// Options tune the generated script.
type Options struct {
	// Stack makes every hook ship the managed stack trace. It costs one
	// throwable per call, so it follows the stack channel.
	Stack bool
	// Header is an optional comment placed at the top of the script.
	Header string
}

var scriptTemplate = template.Must(template.New("agent").Funcs(template.FuncMap{
	"quote":  strconv.Quote,
	"params": quoteParams,
	"header": commentLines,
}).Parse(`'use strict';
{{header .Header}}
function __bytes(b) {
    var out = new Array(b.length);
    for (var i = 0; i < b.length; i++) {
        out[i] = b[i] & 0xff;
    }
    return out;
}

function __value(v, t) {
    if (v === null || v === undefined) {
        return null;
    }
    switch (t) {
    case '[B':
        return __bytes(v);
    case 'int':
        return v | 0;
    case 'java.math.BigInteger':
        return v.toString(16);
    case 'java.lang.String':
        return '' + v;
    }
    if (typeof v === 'string' || typeof v === 'number' || typeof v === 'boolean') {
        return v;
    }
    if (typeof v === 'object' && typeof v.length === 'number') {
        return __bytes(v);
    }
    return '' + v;
}

function __stack() {
    return Java.use('android.util.Log').getStackTraceString(Java.use('java.lang.Exception').$new());
}

function __hook(cls, method, params) {
    var C;
    try {
        C = Java.use(cls);
    } catch (e) {
        return false;
    }
    var target = C[method];
    if (!target) {
        return false;
    }
    var ov;
    try {
        ov = target.overload.apply(target, params);
    } catch (e) {
        return false;
    }
    var binding = cls + '.' + method + '(' + params.join(',') + ')';
    ov.implementation = function () {
        var stack = {{if .Stack}}__stack(){{else}}null{{end}};
        var m = this[method];
        var result = m.overload.apply(m, params).apply(this, arguments);
        try {
            var args = [];
            for (var i = 0; i < params.length; i++) {
                args.push(__value(arguments[i], params[i]));
            }
            send({binding: binding, args: args, result: __value(result, null), stack: stack});
        } catch (e) {
        }
        return result;
    };
    return true;
}

Java.perform(function () {
    var bound = 0;
{{- range .Defs}}
    if (__hook({{quote .Type}}, {{quote .Method}}, [{{params .Signature}}])) { bound++; }
{{- end}}
    console.log('cryptotap: ' + bound + ' of {{len .Defs}} bindings installed');
});
`))

func quoteParams(sig hooks.Signature) string {
	params := sig.Params()
	for i, p := range params {
		params[i] = strconv.Quote(p)
	}
	return strings.Join(params, ", ")
}

func commentLines(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "// " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// Generate renders an agent that binds every definition. Definitions are
// emitted in the order given.
func Generate(defs []hooks.Definition, opts Options) (string, error) {
	for _, d := range defs {
		if !d.Signature.Valid() {
			return "", fmt.Errorf("generate %s.%s: %w", d.Type, d.Method, hooks.ErrInvalidKey)
		}
	}
	var sb strings.Builder
	err := scriptTemplate.Execute(&sb, struct {
		Options
		Defs []hooks.Definition
	}{opts, defs})
	if err != nil {
		return "", fmt.Errorf("generate agent: %w", err)
	}
	return sb.String(), nil
}
