package navigation

import (
	"errors"
	"fmt"

	"github.com/folderlink/folderlink/internal/api"
	"github.com/folderlink/folderlink/internal/models"
)

// Notice texts shown for failed navigations.
const (
	NoticeParseError    = "parse error"
	NoticeEmptyFolder   = "folder empty/invalid"
	noticeConnectionFmt = "connection failed: %v"
)

// NoticeFor maps a navigation error to the message shown to the user.
func NoticeFor(err error) string {
	var fe *api.FetchError
	if errors.As(err, &fe) {
		if fe.Kind == api.ErrorKindDecode {
			return NoticeParseError
		}
		return fmt.Sprintf(noticeConnectionFmt, fe.Err)
	}

	var be *models.BusinessError
	if errors.As(err, &be) {
		return NoticeEmptyFolder
	}

	return fmt.Sprintf(noticeConnectionFmt, err)
}
