package sqlitetable

import "log"

var engineLog = log.New(log.Writer(), "[sqlitetable] ", log.LstdFlags)
