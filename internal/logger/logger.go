package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

var (
	infoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime)
)

// Init resets the writers. Useful after the environment is loaded.
func Init() {
	infoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime)
}

// format renders a message followed by key-value pairs:
// "msg key1=val1 key2=val2". A trailing odd value is kept as-is.
func format(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 != 0 {
		fmt.Fprintf(&b, " %v", kv[len(kv)-1])
	}
	return b.String()
}

func Info(msg string, kv ...interface{}) {
	infoLogger.Println(format(msg, kv))
}

func Infof(format string, v ...interface{}) {
	infoLogger.Printf(format, v...)
}

func Error(msg string, kv ...interface{}) {
	errorLogger.Println(format(msg, kv))
}

func Errorf(format string, v ...interface{}) {
	errorLogger.Printf(format, v...)
}

func Debug(msg string, kv ...interface{}) {
	debugLogger.Println(format(msg, kv))
}

func Debugf(format string, v ...interface{}) {
	debugLogger.Printf(format, v...)
}

func Fatal(msg string) {
	errorLogger.Fatal(msg)
}

func Fatalf(format string, v ...interface{}) {
	errorLogger.Fatalf(format, v...)
}
