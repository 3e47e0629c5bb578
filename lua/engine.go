package lua

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	lua "github.com/yuin/gopher-lua"

	"github.com/miniminio/miniminio/storage"
)

// Engine executes Lua scripts against a sharded byte store
type Engine struct {
	store   *storage.Sharded[[]byte]
	scripts *xsync.MapOf[string, string] // SHA1 -> script
}

// NewEngine creates a new Lua execution engine over store
func NewEngine(store *storage.Sharded[[]byte]) *Engine {
	return &Engine{
		store:   store,
		scripts: xsync.NewMapOf[string, string](),
	}
}

// Eval executes a Lua script with the given keys and arguments. Each call
// gets a fresh interpreter state.
func (e *Engine) Eval(script string, keys []string, args []string) (interface{}, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	e.setupAPI(L, keys, args)

	if err := L.DoString(script); err != nil {
		return nil, fmt.Errorf("script execution error: %w", err)
	}

	return e.convertLuaValue(L.Get(-1)), nil
}

// EvalSHA executes a previously loaded script by its SHA1 hash
func (e *Engine) EvalSHA(sha1 string, keys []string, args []string) (interface{}, error) {
	script, ok := e.scripts.Load(strings.ToLower(sha1))
	if !ok {
		return nil, fmt.Errorf("NOSCRIPT No matching script. Please use EVAL")
	}
	return e.Eval(script, keys, args)
}

// LoadScript caches a script and returns its SHA1 hash
func (e *Engine) LoadScript(script string) string {
	sum := sha1.Sum([]byte(script))
	hash := hex.EncodeToString(sum[:])
	e.scripts.Store(hash, script)
	return hash
}

// ScriptExists reports, for each hash, whether the script is cached
func (e *Engine) ScriptExists(hashes []string) []bool {
	results := make([]bool, len(hashes))
	for i, hash := range hashes {
		_, results[i] = e.scripts.Load(strings.ToLower(hash))
	}
	return results
}

// openSafeLibs loads the libraries scripts may use. os and io stay closed.
func openSafeLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// setupAPI installs KEYS, ARGV and the redis table
func (e *Engine) setupAPI(L *lua.LState, keys []string, args []string) {
	keysTable := L.NewTable()
	for i, key := range keys {
		keysTable.RawSetInt(i+1, lua.LString(key)) // Lua arrays are 1-indexed
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, arg := range args {
		argvTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call":  e.call,
		"pcall": e.pcall,
	})
	L.SetGlobal("redis", redisTable)
}

// call implements redis.call(); errors abort the script
func (e *Engine) call(L *lua.LState) int {
	result, err := e.executeFromLua(L)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(e.convertToLuaValue(L, result))
	return 1
}

// pcall implements redis.pcall(); errors are returned as {err=...}
func (e *Engine) pcall(L *lua.LState) int {
	result, err := e.executeFromLua(L)
	if err != nil {
		errTable := L.NewTable()
		errTable.RawSetString("err", lua.LString(err.Error()))
		L.Push(errTable)
		return 1
	}
	L.Push(e.convertToLuaValue(L, result))
	return 1
}

func (e *Engine) executeFromLua(L *lua.LState) (interface{}, error) {
	argc := L.GetTop()
	if argc == 0 {
		return nil, fmt.Errorf("wrong number of arguments for redis command")
	}

	name := L.ToString(1)
	if name == "" {
		return nil, fmt.Errorf("command name must be a string")
	}

	args := make([]string, argc-1)
	for i := 2; i <= argc; i++ {
		args[i-2] = L.ToString(i)
	}

	return e.executeCommand(strings.ToUpper(name), args)
}

// executeCommand runs a store command on behalf of a script
func (e *Engine) executeCommand(cmd string, args []string) (interface{}, error) {
	switch cmd {
	case "GET":
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments for 'get' command")
		}
		value, ok := e.store.Get(args[0])
		if !ok {
			return nil, nil
		}
		return string(value), nil

	case "SET":
		if len(args) != 2 {
			return nil, fmt.Errorf("wrong number of arguments for 'set' command")
		}
		e.store.Insert(args[0], []byte(args[1]))
		return "OK", nil

	case "EXISTS":
		if len(args) == 0 {
			return nil, fmt.Errorf("wrong number of arguments for 'exists' command")
		}
		var count int64
		for _, key := range args {
			if _, ok := e.store.Get(key); ok {
				count++
			}
		}
		return count, nil

	default:
		return nil, fmt.Errorf("unknown or unsupported command: %s", cmd)
	}
}

// convertToLuaValue converts a Go value to a Lua value
func (e *Engine) convertToLuaValue(L *lua.LState, value interface{}) lua.LValue {
	if value == nil {
		return lua.LFalse // nil replies become false in Lua
	}

	switch v := value.(type) {
	case string:
		return lua.LString(v)
	case int64:
		return lua.LNumber(float64(v))
	case bool:
		return lua.LBool(v)
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// convertLuaValue converts a Lua value to a Go value
func (e *Engine) convertLuaValue(lv lua.LValue) interface{} {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return int64(v) // integer replies truncate like Redis
	case *lua.LNilType:
		return nil
	case *lua.LTable:
		if v.Len() > 0 || isEmptyTable(v) {
			result := make([]interface{}, 0, v.Len())
			for i := 1; i <= v.Len(); i++ {
				result = append(result, e.convertLuaValue(v.RawGetInt(i)))
			}
			return result
		}
		result := make(map[string]interface{})
		v.ForEach(func(k, val lua.LValue) {
			result[k.String()] = e.convertLuaValue(val)
		})
		return result
	default:
		return lv.String()
	}
}

func isEmptyTable(t *lua.LTable) bool {
	key, _ := t.Next(lua.LNil)
	return key == lua.LNil
}
