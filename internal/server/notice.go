package server

import (
	"context"
	"errors"
	"net/http"

	"photokiosk/internal/booth"
	"photokiosk/internal/camera"
	"photokiosk/internal/catalog"
	"photokiosk/internal/compositor"
	"photokiosk/internal/countdown"
	"photokiosk/internal/publisher"
	"photokiosk/internal/storage"
)

type notice struct {
	err    error
	status int
	text   string
}

// Checked in order; the first match wins.
var notices = []notice{
	{camera.ErrPermissionDenied, http.StatusForbidden, "Kamera erişimi için izin gerekli"},
	{camera.ErrSessionActive, http.StatusConflict, "Kamera zaten açık"},
	{camera.ErrDeviceUnavailable, http.StatusServiceUnavailable, "Kamera kullanılamıyor"},
	{compositor.ErrNoActiveSession, http.StatusConflict, "Önce kamerayı açın"},
	{countdown.ErrInvalidDelay, http.StatusBadRequest, "Geçersiz geri sayım süresi"},
	{catalog.ErrCatalogUnavailable, http.StatusServiceUnavailable, "Çerçeveler yüklenemedi"},
	{booth.ErrNoPhoto, http.StatusNotFound, "Henüz fotoğraf çekilmedi"},
	{publisher.ErrPersist, http.StatusServiceUnavailable, "Fotoğraf kaydedilemedi, lütfen tekrar deneyin"},
	{publisher.ErrExpired, http.StatusGone, "Paylaşılan fotoğrafın süresi dolmuş. Lütfen QR kodu tekrar okutun."},
	{publisher.ErrNotFound, http.StatusNotFound, "Paylaşılan fotoğraf bulunamadı. Lütfen QR kodu tekrar okutun."},
	{storage.ErrNotFound, http.StatusNotFound, "Fotoğraf bulunamadı"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "İşlem zaman aşımına uğradı, lütfen tekrar deneyin"},
}

const unexpectedNotice = "Beklenmeyen bir hata oluştu"

// noticeFor maps an error to the status and short message shown on the
// kiosk. Raw errors never leave the server.
func noticeFor(err error) (int, string) {
	for _, n := range notices {
		if errors.Is(err, n.err) {
			return n.status, n.text
		}
	}
	return http.StatusInternalServerError, unexpectedNotice
}
